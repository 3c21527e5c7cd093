package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"

	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO plans (
			id, tenant_id, plan_code, seats_base, projects_base, storage_base_mb,
			period_end, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_code = excluded.plan_code,
			seats_base = excluded.seats_base,
			projects_base = excluded.projects_base,
			storage_base_mb = excluded.storage_base_mb,
			period_end = excluded.period_end,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		plan.ID,
		plan.TenantID,
		plan.PlanCode,
		plan.SeatsBase,
		plan.ProjectsBase,
		plan.StorageBaseMB,
		plan.PeriodEnd,
		plan.Metadata,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Error
}

func (r *repo) FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, plan_code, seats_base, projects_base, storage_base_mb,
		 period_end, metadata, created_at, updated_at
		 FROM plans WHERE tenant_id = ?`,
		tenantID,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}
