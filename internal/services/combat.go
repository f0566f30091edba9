package services

import (
	"context"
	"fmt"
	"sync"

	"dice-offline/internal/logger"
	"dice-offline/internal/models"

	"go.uber.org/zap"
)

// CombatStore is the single source of truth for a table's combat fields.
// Views never write into each other; they write here and are told about it.
type CombatStore struct {
	kv KV

	mu          sync.RWMutex
	nextID      int
	subscribers map[int]func(models.CombatChange)
}

func NewCombatStore(kv KV) *CombatStore {
	return &CombatStore{
		kv:          kv,
		subscribers: make(map[int]func(models.CombatChange)),
	}
}

func combatKey(tableID string, field models.CombatField) string {
	return fmt.Sprintf(KeyCombatField, tableID, field.StorageKey())
}

func (cs *CombatStore) Load(ctx context.Context, tableID string) (models.CombatState, error) {
	var state models.CombatState
	for _, field := range models.CombatFields {
		value, ok, err := cs.kv.Get(ctx, combatKey(tableID, field))
		if err != nil {
			return models.CombatState{}, fmt.Errorf("failed to load %s: %w", field, err)
		}
		if ok {
			state.Set(field, value)
		}
	}
	return state, nil
}

// Set validates and writes one field. The last writer wins.
func (cs *CombatStore) Set(ctx context.Context, tableID string, field models.CombatField, raw string) (models.CombatState, error) {
	if _, err := models.ParseCombatField(string(field)); err != nil {
		return models.CombatState{}, err
	}
	value, err := models.ValidateCombatValue(raw)
	if err != nil {
		return models.CombatState{}, err
	}

	if err := cs.kv.Set(ctx, combatKey(tableID, field), value); err != nil {
		return models.CombatState{}, fmt.Errorf("failed to save %s: %w", field, err)
	}
	return cs.publish(ctx, tableID, field)
}

// Reset writes an empty value to every field.
func (cs *CombatStore) Reset(ctx context.Context, tableID string) (models.CombatState, error) {
	for _, field := range models.CombatFields {
		if err := cs.kv.Set(ctx, combatKey(tableID, field), ""); err != nil {
			return models.CombatState{}, fmt.Errorf("failed to reset %s: %w", field, err)
		}
	}
	return cs.publish(ctx, tableID, models.CombatFields...)
}

func (cs *CombatStore) HUD(ctx context.Context, tableID string) (models.HUDView, error) {
	state, err := cs.Load(ctx, tableID)
	if err != nil {
		return models.HUDView{}, err
	}
	return models.NewHUDView(state), nil
}

// Subscribe registers fn for every change on every table. The returned func
// removes the subscription.
func (cs *CombatStore) Subscribe(fn func(models.CombatChange)) func() {
	cs.mu.Lock()
	id := cs.nextID
	cs.nextID++
	cs.subscribers[id] = fn
	cs.mu.Unlock()

	return func() {
		cs.mu.Lock()
		delete(cs.subscribers, id)
		cs.mu.Unlock()
	}
}

// SubscribeBroadcaster forwards every change to b.
func (cs *CombatStore) SubscribeBroadcaster(b Broadcaster) func() {
	return cs.Subscribe(b.BroadcastCombatState)
}

func (cs *CombatStore) publish(ctx context.Context, tableID string, fields ...models.CombatField) (models.CombatState, error) {
	state, err := cs.Load(ctx, tableID)
	if err != nil {
		return models.CombatState{}, err
	}

	change := models.CombatChange{TableID: tableID, Fields: fields, State: state}

	cs.mu.RLock()
	subs := make([]func(models.CombatChange), 0, len(cs.subscribers))
	for _, fn := range cs.subscribers {
		subs = append(subs, fn)
	}
	cs.mu.RUnlock()

	for _, fn := range subs {
		fn(change)
	}
	logger.WithCtx(ctx).Debug("combat state changed",
		zap.String("table_id", tableID),
		zap.Int("subscribers", len(subs)),
	)
	return state, nil
}
