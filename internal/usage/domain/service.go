package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Snapshot is the read-side view: counts in whole units with storage already
// converted to GB (ceiling). A tenant with no recorded usage reads as zeros.
type Snapshot struct {
	SeatsUsed     int64     `json:"seats_used"`
	ProjectsUsed  int64     `json:"projects_used"`
	StorageUsedGB int64     `json:"storage_used_gb"`
	StorageUsedMB float64   `json:"storage_used_mb"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type PutRequest struct {
	SeatsUsed     int64   `json:"seats_used"`
	ProjectsUsed  int64   `json:"projects_used"`
	StorageUsedMB float64 `json:"storage_used_mb"`
}

type Service interface {
	Get(ctx context.Context) (Snapshot, error)
	Put(ctx context.Context, req PutRequest) (Snapshot, error)
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, snapshot *UsageSnapshot) error
	FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*UsageSnapshot, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidValue  = errors.New("invalid_value")
)
