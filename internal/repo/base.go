package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm connection shared by the domain repositories.
// Embedding it gives a repository the DB accessor so every query runs
// against a context-bound session.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB binds ctx into a gorm session. A nil ctx yields the bare connection,
// which keeps test setup paths simple.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}
