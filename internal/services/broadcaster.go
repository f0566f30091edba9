package services

import "dice-offline/internal/models"

// Broadcaster pushes combat changes to every view open on a table.
type Broadcaster interface {
	BroadcastCombatState(change models.CombatChange)
}
