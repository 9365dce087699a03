package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a leaseholder. Tenant CRUD lives in the surrounding system;
// this core reads it only to address notifications.
type Tenant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
