package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"dice-offline/internal/models"
)

// Source yields uniform integers in [0, n). Implementations must be safe for
// concurrent use.
type Source interface {
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// NewSeededSource returns a deterministic PCG source.
func NewSeededSource(seed1, seed2 uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewSource seeds a PCG source from crypto/rand.
func NewSource() (Source, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewSeededSource(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

type DiceEngine struct {
	source Source
}

func NewDiceEngine(source Source) *DiceEngine {
	return &DiceEngine{source: source}
}

// Roll resolves a roll. Quantity and sides are clamped, and advantage or
// disadvantage is only honoured for a single d20; every other combination
// rolls normally.
//
// A normal roll keeps the values in draw order and totals them. An adv/dis
// roll draws two d20s, keeps both as Values, and reports the higher (adv) or
// lower (dis) as both Chosen and Total.
func (de *DiceEngine) Roll(quantity, sides int, mode models.Mode) models.RollResult {
	req := models.RollRequest{Quantity: quantity, Sides: sides, Mode: mode}.Normalize()

	if req.Mode != models.ModeNormal {
		a := de.rollDie(20)
		b := de.rollDie(20)
		chosen := max(a, b)
		if req.Mode == models.ModeDisadvantage {
			chosen = min(a, b)
		}
		return models.RollResult{
			Quantity: 1,
			Sides:    20,
			Mode:     req.Mode,
			Values:   []int{a, b},
			Total:    chosen,
			Chosen:   &chosen,
		}
	}

	values := make([]int, req.Quantity)
	total := 0
	for i := range values {
		values[i] = de.rollDie(req.Sides)
		total += values[i]
	}

	return models.RollResult{
		Quantity: req.Quantity,
		Sides:    req.Sides,
		Mode:     models.ModeNormal,
		Values:   values,
		Total:    total,
	}
}

func (de *DiceEngine) RollRequest(req models.RollRequest) models.RollResult {
	return de.Roll(req.Quantity, req.Sides, req.Mode)
}

func (de *DiceEngine) rollDie(sides int) int {
	return de.source.IntN(sides) + 1
}
