package services_test

import (
	"sync"
	"testing"

	"pgregory.net/rapid"

	"dice-offline/internal/models"
	"dice-offline/internal/services"
)

// scriptedSource replays die faces: each draw returns the next face.
type scriptedSource struct {
	mu    sync.Mutex
	faces []int
	calls []int
}

func (s *scriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, n)
	face := s.faces[0]
	s.faces = s.faces[1:]
	return face - 1
}

// boundSource always returns the lowest or highest value of the range.
type boundSource struct{ high bool }

func (s boundSource) IntN(n int) int {
	if s.high {
		return n - 1
	}
	return 0
}

func TestRollNormalKeepsDrawOrder(t *testing.T) {
	src := &scriptedSource{faces: []int{2, 3, 6}}
	engine := services.NewDiceEngine(src)

	result := engine.Roll(3, 6, models.ModeNormal)

	want := []int{2, 3, 6}
	if len(result.Values) != len(want) {
		t.Fatalf("expected %d values, got %v", len(want), result.Values)
	}
	for i := range want {
		if result.Values[i] != want[i] {
			t.Fatalf("values = %v, want %v", result.Values, want)
		}
	}
	if result.Total != 11 {
		t.Errorf("total = %d, want 11", result.Total)
	}
	if result.Chosen != nil {
		t.Errorf("normal roll should have no chosen value, got %d", *result.Chosen)
	}
	for _, n := range src.calls {
		if n != 6 {
			t.Errorf("expected draws over 6 faces, got IntN(%d)", n)
		}
	}
}

func TestRollAdvantageChoosesHigher(t *testing.T) {
	engine := services.NewDiceEngine(&scriptedSource{faces: []int{14, 19}})

	result := engine.Roll(1, 20, models.ModeAdvantage)

	if result.Mode != models.ModeAdvantage {
		t.Fatalf("mode = %v, want adv", result.Mode)
	}
	if len(result.Values) != 2 || result.Values[0] != 14 || result.Values[1] != 19 {
		t.Fatalf("values = %v, want [14 19]", result.Values)
	}
	if result.Chosen == nil || *result.Chosen != 19 {
		t.Fatalf("chosen = %v, want 19", result.Chosen)
	}
	if result.Total != 19 {
		t.Errorf("total = %d, want 19", result.Total)
	}
}

func TestRollDisadvantageChoosesLower(t *testing.T) {
	engine := services.NewDiceEngine(&scriptedSource{faces: []int{14, 19}})

	result := engine.Roll(1, 20, models.ModeDisadvantage)

	if result.Chosen == nil || *result.Chosen != 14 {
		t.Fatalf("chosen = %v, want 14", result.Chosen)
	}
	if result.Total != 14 {
		t.Errorf("total = %d, want 14", result.Total)
	}
}

func TestRollIgnoresModeOutsideSingleD20(t *testing.T) {
	cases := []struct {
		quantity, sides int
	}{
		{2, 20},
		{1, 12},
		{1, 100},
		{5, 6},
	}

	for _, tc := range cases {
		engine := services.NewDiceEngine(boundSource{high: true})
		result := engine.Roll(tc.quantity, tc.sides, models.ModeAdvantage)
		if result.Mode != models.ModeNormal {
			t.Errorf("%dd%d: mode = %v, want normal", tc.quantity, tc.sides, result.Mode)
		}
		if len(result.Values) != tc.quantity {
			t.Errorf("%dd%d: got %d values", tc.quantity, tc.sides, len(result.Values))
		}
		if result.Chosen != nil {
			t.Errorf("%dd%d: unexpected chosen value", tc.quantity, tc.sides)
		}
	}
}

func TestRollClampsInput(t *testing.T) {
	engine := services.NewDiceEngine(boundSource{})

	result := engine.Roll(0, 1, models.ModeNormal)
	if result.Quantity != 1 || result.Sides != 2 || len(result.Values) != 1 {
		t.Fatalf("expected clamp to 1d2, got %+v", result)
	}

	result = engine.Roll(500, 1000, models.ModeNormal)
	if result.Quantity != 100 || result.Sides != 100 || len(result.Values) != 100 {
		t.Fatalf("expected clamp to 100d100, got quantity=%d sides=%d", result.Quantity, result.Sides)
	}
}

func TestRollReachesBothBounds(t *testing.T) {
	for _, sides := range []int{2, 6, 20, 100} {
		low := services.NewDiceEngine(boundSource{}).Roll(1, sides, models.ModeNormal)
		if low.Values[0] != 1 {
			t.Errorf("d%d lowest draw = %d, want 1", sides, low.Values[0])
		}
		high := services.NewDiceEngine(boundSource{high: true}).Roll(1, sides, models.ModeNormal)
		if high.Values[0] != sides {
			t.Errorf("d%d highest draw = %d, want %d", sides, high.Values[0], sides)
		}
	}
}

func TestSeededSourceCoversRange(t *testing.T) {
	engine := services.NewDiceEngine(services.NewSeededSource(1, 2))

	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		v := engine.Roll(1, 6, models.ModeNormal).Values[0]
		if v < 1 || v > 6 {
			t.Fatalf("d6 produced %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected all six faces, saw %v", seen)
	}
}

func TestNewSource(t *testing.T) {
	src, err := services.NewSource()
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if v := src.IntN(20); v < 0 || v >= 20 {
		t.Fatalf("IntN(20) = %d", v)
	}
}

func TestRollNormalProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.IntRange(1, 100).Draw(t, "quantity")
		s := rapid.IntRange(2, 100).Draw(t, "sides")
		seed := rapid.Uint64().Draw(t, "seed")

		result := services.NewDiceEngine(services.NewSeededSource(seed, seed^0x9e3779b97f4a7c15)).
			Roll(q, s, models.ModeNormal)

		if len(result.Values) != q {
			t.Fatalf("got %d values, want %d", len(result.Values), q)
		}
		sum := 0
		for _, v := range result.Values {
			if v < 1 || v > s {
				t.Fatalf("value %d outside [1,%d]", v, s)
			}
			sum += v
		}
		if result.Total != sum {
			t.Fatalf("total %d != sum %d", result.Total, sum)
		}
	})
}

func TestRollAdvDisProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := rapid.SampledFrom([]models.Mode{models.ModeAdvantage, models.ModeDisadvantage}).Draw(t, "mode")
		seed := rapid.Uint64().Draw(t, "seed")

		result := services.NewDiceEngine(services.NewSeededSource(seed, ^seed)).Roll(1, 20, mode)

		if len(result.Values) != 2 {
			t.Fatalf("got %d values, want 2", len(result.Values))
		}
		a, b := result.Values[0], result.Values[1]
		for _, v := range result.Values {
			if v < 1 || v > 20 {
				t.Fatalf("value %d outside [1,20]", v)
			}
		}
		want := max(a, b)
		if mode == models.ModeDisadvantage {
			want = min(a, b)
		}
		if result.Chosen == nil || *result.Chosen != want || result.Total != want {
			t.Fatalf("chosen=%v total=%d, want %d", result.Chosen, result.Total, want)
		}
	})
}

func TestRollModeNeverAppliesOffD20(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := rapid.IntRange(1, 100).Draw(t, "quantity")
		s := rapid.IntRange(2, 100).Draw(t, "sides")
		if q == 1 && s == 20 {
			t.Skip("single d20")
		}
		mode := rapid.SampledFrom([]models.Mode{models.ModeNormal, models.ModeAdvantage, models.ModeDisadvantage}).Draw(t, "mode")

		result := services.NewDiceEngine(services.NewSeededSource(uint64(q), uint64(s))).Roll(q, s, mode)
		if result.Mode != models.ModeNormal || result.Chosen != nil {
			t.Fatalf("%dd%d %v resolved as %v", q, s, mode, result.Mode)
		}
	})
}
