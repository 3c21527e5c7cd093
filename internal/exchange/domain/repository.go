package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*ResourceOverride, error)
	// Insert creates the first override for a tenant. A duplicate-key error
	// means another writer won the race.
	Insert(ctx context.Context, db *gorm.DB, override *ResourceOverride) error
	// UpdateCAS replaces the row only when the stored version still matches
	// expectedVersion. Returns false when the compare failed.
	UpdateCAS(ctx context.Context, db *gorm.DB, override *ResourceOverride, expectedVersion int64) (bool, error)
	DeleteByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error
	// DeleteExpired lazily garbage-collects a row whose validity has passed.
	DeleteExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) error

	InsertEvent(ctx context.Context, db *gorm.DB, event *ExchangeEvent) error
	ListEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, beforeID snowflake.ID, limit int32) ([]*ExchangeEvent, error)
}
