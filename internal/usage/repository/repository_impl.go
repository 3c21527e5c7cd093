package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"

	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() usagedomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, snapshot *usagedomain.UsageSnapshot) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_snapshots (
			id, tenant_id, seats_used, projects_used, storage_used_mb,
			recorded_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			seats_used = excluded.seats_used,
			projects_used = excluded.projects_used,
			storage_used_mb = excluded.storage_used_mb,
			recorded_at = excluded.recorded_at,
			updated_at = excluded.updated_at`,
		snapshot.ID,
		snapshot.TenantID,
		snapshot.SeatsUsed,
		snapshot.ProjectsUsed,
		snapshot.StorageUsedMB,
		snapshot.RecordedAt,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	).Error
}

func (r *repo) FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*usagedomain.UsageSnapshot, error) {
	var snapshot usagedomain.UsageSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, seats_used, projects_used, storage_used_mb,
		 recorded_at, created_at, updated_at
		 FROM usage_snapshots WHERE tenant_id = ?`,
		tenantID,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}
