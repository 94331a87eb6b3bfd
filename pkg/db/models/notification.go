package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawcircle/pawcircle-backend/pkg/enums"
)

// Notification is an in-app message derived from a published domain event.
// EventID is unique so redelivered events never produce a second row.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	EventID   uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	Type      enums.NotificationType `gorm:"column:type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	Link      *string                `gorm:"column:link"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
