package models

import (
	"time"

	"github.com/google/uuid"
)

// CloseContact is a validated proximity record: InfectedUserID reported a
// token broadcast by ContactedUserID at ContactTimestamp.
type CloseContact struct {
	ID               uuid.UUID
	InfectedUserID   uuid.UUID
	ContactedUserID  uuid.UUID
	InfectionID      uuid.UUID
	ContactTimestamp time.Time
	SignalStrength   int64
}
