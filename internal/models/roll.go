package models

import "fmt"

const (
	MinQuantity = 1
	MaxQuantity = 100
	MinSides    = 2
	MaxSides    = 100

	DefaultQuantity = 1
	DefaultSides    = 20
)

// Mode selects how a 1d20 roll is resolved.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdvantage
	ModeDisadvantage
)

func (m Mode) String() string {
	switch m {
	case ModeAdvantage:
		return "adv"
	case ModeDisadvantage:
		return "dis"
	default:
		return "normal"
	}
}

// Label is the text shown on the mode toggle.
func (m Mode) Label() string {
	switch m {
	case ModeAdvantage:
		return "ADV"
	case ModeDisadvantage:
		return "DIS"
	default:
		return "A/D"
	}
}

// Next cycles normal -> adv -> dis -> normal.
func (m Mode) Next() Mode {
	switch m {
	case ModeNormal:
		return ModeAdvantage
	case ModeAdvantage:
		return ModeDisadvantage
	default:
		return ModeNormal
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "normal":
		return ModeNormal, nil
	case "adv":
		return ModeAdvantage, nil
	case "dis":
		return ModeDisadvantage, nil
	default:
		return ModeNormal, fmt.Errorf("invalid mode: %s", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ModeApplies reports whether advantage/disadvantage is meaningful for the dice.
func ModeApplies(quantity, sides int) bool {
	return quantity == 1 && sides == 20
}

type RollRequest struct {
	Quantity int  `json:"quantity"`
	Sides    int  `json:"sides"`
	Mode     Mode `json:"mode"`
}

// Normalize clamps the dice to their valid ranges and drops the mode when it
// does not apply to them.
func (r RollRequest) Normalize() RollRequest {
	r.Quantity = clamp(r.Quantity, MinQuantity, MaxQuantity)
	r.Sides = clamp(r.Sides, MinSides, MaxSides)
	if !ModeApplies(r.Quantity, r.Sides) {
		r.Mode = ModeNormal
	}
	return r
}

func (r RollRequest) String() string {
	if r.Mode != ModeNormal {
		return fmt.Sprintf("%dd%d %s", r.Quantity, r.Sides, r.Mode.Label())
	}
	return fmt.Sprintf("%dd%d", r.Quantity, r.Sides)
}

// RollResult is produced once per roll and never mutated afterwards.
type RollResult struct {
	Quantity int   `json:"quantity"`
	Sides    int   `json:"sides"`
	Mode     Mode  `json:"mode"`
	Values   []int `json:"values"`
	Total    int   `json:"total"`
	Chosen   *int  `json:"chosen,omitempty"`
}

// Classification marks a die face as an extreme of its range.
type Classification int

const (
	ClassNormal Classification = iota
	ClassMinimum
	ClassMaximum
)

func (c Classification) String() string {
	switch c {
	case ClassMinimum:
		return "minimum"
	case ClassMaximum:
		return "maximum"
	default:
		return "normal"
	}
}

// CSSClass is the class attribute used for a die value span.
func (c Classification) CSSClass() string {
	switch c {
	case ClassMinimum:
		return "num min"
	case ClassMaximum:
		return "num max"
	default:
		return "num"
	}
}
