// Package models defines server-side records persisted in the database.
package models

import (
	"time"

	"github.com/google/uuid"
)

// InfectionEvent is a confirmed infection recorded for a user.
type InfectionEvent struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	RecordedAt time.Time
}

// NotificationRequirement obliges the user of an infection event to disclose
// collected contact tokens between StartDate and DueDate. StartDate and
// DueDate are calendar dates; their clock part is ignored.
type NotificationRequirement struct {
	ID          uuid.UUID
	InfectionID uuid.UUID
	StartDate   time.Time
	DueDate     time.Time
	Uploaded    bool
}
