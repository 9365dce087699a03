package notifier

import (
	"context"

	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/internal/repo"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
)

// Repository persists in-app notification rows.
type Repository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

type repository struct {
	repo.Base
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}
