package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dice-offline/internal/models"
)

// TrayService keeps each table's dice tray: the selected dice, the adv/dis
// toggle, the last roll and the rendered output.
type TrayService struct {
	kv   KV
	dice *DiceEngine

	// locks holds one *sync.Mutex per table; mutations of a table are serialized.
	locks sync.Map
}

func NewTrayService(kv KV, dice *DiceEngine) *TrayService {
	return &TrayService{kv: kv, dice: dice}
}

func (ts *TrayService) Get(ctx context.Context, tableID string) (models.TrayState, error) {
	data, ok, err := ts.kv.Get(ctx, fmt.Sprintf(KeyTray, tableID))
	if err != nil {
		return models.TrayState{}, fmt.Errorf("failed to load tray: %w", err)
	}
	if !ok {
		state := models.NewTrayState()
		state.Output = EmptyOutput()
		return state, nil
	}

	var state models.TrayState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return models.TrayState{}, fmt.Errorf("failed to unmarshal tray: %w", err)
	}
	return normalizeTray(state), nil
}

func (ts *TrayService) save(ctx context.Context, tableID string, state models.TrayState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal tray: %w", err)
	}
	if err := ts.kv.Set(ctx, fmt.Sprintf(KeyTray, tableID), string(data)); err != nil {
		return fmt.Errorf("failed to save tray: %w", err)
	}
	return nil
}

func (ts *TrayService) lock(tableID string) func() {
	mu, _ := ts.locks.LoadOrStore(tableID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (ts *TrayService) mutate(ctx context.Context, tableID string, fn func(*models.TrayState)) (models.TrayState, error) {
	defer ts.lock(tableID)()

	state, err := ts.Get(ctx, tableID)
	if err != nil {
		return models.TrayState{}, err
	}
	fn(&state)
	state = normalizeTray(state)
	if err := ts.save(ctx, tableID, state); err != nil {
		return models.TrayState{}, err
	}
	return state, nil
}

// Update applies raw quantity and sides input. Each value is clamped; a nil
// value leaves the field unchanged.
func (ts *TrayService) Update(ctx context.Context, tableID string, req models.TrayUpdateRequest) (models.TrayState, error) {
	return ts.mutate(ctx, tableID, func(state *models.TrayState) {
		if req.Quantity != nil {
			state.Quantity = models.ClampInt(*req.Quantity, models.MinQuantity, models.MaxQuantity)
		}
		if req.Sides != nil {
			state.Sides = models.ClampInt(*req.Sides, models.MinSides, models.MaxSides)
		}
	})
}

func (ts *TrayService) SetQuantity(ctx context.Context, tableID, raw string) (models.TrayState, error) {
	return ts.Update(ctx, tableID, models.TrayUpdateRequest{Quantity: &raw})
}

func (ts *TrayService) SetSides(ctx context.Context, tableID, raw string) (models.TrayState, error) {
	return ts.Update(ctx, tableID, models.TrayUpdateRequest{Sides: &raw})
}

// CycleMode advances the adv/dis toggle. It does nothing while the toggle is
// hidden.
func (ts *TrayService) CycleMode(ctx context.Context, tableID string) (models.TrayState, error) {
	return ts.mutate(ctx, tableID, func(state *models.TrayState) {
		if state.ModeVisible() {
			state.Mode = state.Mode.Next()
		}
	})
}

// Roll rolls the tray's current dice and replaces the output.
func (ts *TrayService) Roll(ctx context.Context, tableID string) (models.TrayState, models.RollResult, error) {
	var result models.RollResult
	state, err := ts.mutate(ctx, tableID, func(state *models.TrayState) {
		req := state.Request()
		result = ts.dice.RollRequest(req)
		state.Last = req
		state.Output = Render(result)
	})
	if err != nil {
		return models.TrayState{}, models.RollResult{}, err
	}
	return state, result, nil
}

// Repeat rolls again with whatever the tray currently shows.
func (ts *TrayService) Repeat(ctx context.Context, tableID string) (models.TrayState, models.RollResult, error) {
	return ts.Roll(ctx, tableID)
}

// Reset puts the tray back to 1d20 with an empty output.
func (ts *TrayService) Reset(ctx context.Context, tableID string) (models.TrayState, error) {
	return ts.mutate(ctx, tableID, func(state *models.TrayState) {
		last := state.Last
		*state = models.NewTrayState()
		state.Last = last
		state.Output = EmptyOutput()
	})
}

func normalizeTray(state models.TrayState) models.TrayState {
	req := models.RollRequest{Quantity: state.Quantity, Sides: state.Sides, Mode: state.Mode}.Normalize()
	state.Quantity = req.Quantity
	state.Sides = req.Sides
	state.Mode = req.Mode
	if state.Output == "" {
		state.Output = EmptyOutput()
	}
	return state
}
