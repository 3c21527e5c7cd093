// Package domain contains persistence models for tenant usage snapshots.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageSnapshot is the latest observed consumption for a tenant. One row per
// tenant; the metering pipeline overwrites it in place.
type UsageSnapshot struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	TenantID      snowflake.ID `gorm:"column:tenant_id;not null;uniqueIndex:ux_usage_snapshots_tenant"`
	SeatsUsed     int64        `gorm:"not null"`
	ProjectsUsed  int64        `gorm:"not null"`
	StorageUsedMB float64      `gorm:"column:storage_used_mb;not null"`
	RecordedAt    time.Time    `gorm:"not null"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageSnapshot) TableName() string { return "usage_snapshots" }
