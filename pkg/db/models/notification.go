package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Notification stores in-app notification payloads written by the sink.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title       string                 `gorm:"column:title;type:text;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	ReadAt      *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt   time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}
