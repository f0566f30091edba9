package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCombatField = errors.New("unknown combat field")
	ErrInvalidCombatValue = errors.New("combat value must be empty or an integer")
)

// HUDPlaceholder is shown in the HUD for fields that hold no value.
const HUDPlaceholder = "—"

type CombatField string

const (
	FieldArmorClass   CombatField = "ac"
	FieldMaxHitPoints CombatField = "maxhp"
	FieldHitPoints    CombatField = "hp"
	FieldCounter      CombatField = "counter"
)

// CombatFields lists every field in display order.
var CombatFields = []CombatField{FieldArmorClass, FieldMaxHitPoints, FieldHitPoints, FieldCounter}

func ParseCombatField(s string) (CombatField, error) {
	f := CombatField(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range CombatFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCombatField, s)
}

// StorageKey is the key-value key the field is persisted under.
func (f CombatField) StorageKey() string {
	return "diceapp_" + string(f)
}

// CombatState mirrors the persisted combat fields. A nil field has never been
// written; an empty string has been written and cleared.
type CombatState struct {
	ArmorClass   *string `json:"ac"`
	MaxHitPoints *string `json:"maxhp"`
	HitPoints    *string `json:"hp"`
	Counter      *string `json:"counter"`
}

func (s *CombatState) ptr(f CombatField) **string {
	switch f {
	case FieldArmorClass:
		return &s.ArmorClass
	case FieldMaxHitPoints:
		return &s.MaxHitPoints
	case FieldHitPoints:
		return &s.HitPoints
	case FieldCounter:
		return &s.Counter
	}
	return nil
}

// Get returns the raw value and whether the field has been set.
func (s CombatState) Get(f CombatField) (string, bool) {
	p := s.ptr(f)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

func (s *CombatState) Set(f CombatField, value string) {
	if p := s.ptr(f); p != nil {
		v := value
		*p = &v
	}
}

// Int parses the field as an integer. ok is false when the field is unset or empty.
func (s CombatState) Int(f CombatField) (n int, ok bool) {
	raw, set := s.Get(f)
	if !set || raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidateCombatValue accepts the empty string or a signed integer.
func ValidateCombatValue(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", nil
	}
	if _, err := strconv.Atoi(v); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCombatValue, raw)
	}
	return v, nil
}

// HUDView is the compact heads-up projection of a CombatState.
type HUDView struct {
	Visible      bool   `json:"visible"`
	ArmorClass   string `json:"ac"`
	MaxHitPoints string `json:"maxhp"`
	HitPoints    string `json:"hp"`
	Counter      string `json:"counter"`
}

func NewHUDView(s CombatState) HUDView {
	ac, _ := s.Get(FieldArmorClass)
	maxhp, _ := s.Get(FieldMaxHitPoints)
	hp, _ := s.Get(FieldHitPoints)
	counter, _ := s.Get(FieldCounter)

	view := HUDView{
		Visible:      ac != "" || maxhp != "" || hp != "" || counter != "",
		ArmorClass:   ac,
		MaxHitPoints: maxhp,
		HitPoints:    hp,
		Counter:      counter,
	}
	if view.ArmorClass == "" {
		view.ArmorClass = HUDPlaceholder
	}
	if view.MaxHitPoints == "" {
		view.MaxHitPoints = HUDPlaceholder
	}
	return view
}

// CombatChange is delivered to every view after a write.
type CombatChange struct {
	TableID string        `json:"table_id"`
	Fields  []CombatField `json:"fields"`
	State   CombatState   `json:"state"`
}
