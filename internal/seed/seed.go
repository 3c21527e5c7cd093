// Package seed bootstraps a demo tenant so a fresh install can exercise the
// exchange endpoints without any prior provisioning.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"gorm.io/gorm"
)

// DemoTenantID is fixed so the quickstart docs can reference it.
const DemoTenantID snowflake.ID = 1

const demoPlanCode = "professional"

// EnsureDemoTenant seeds a professional plan and a matching usage snapshot
// for the demo tenant. Existing rows are left untouched.
func EnsureDemoTenant(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDemoPlanTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureDemoUsageTx(ctx, tx, node)
	})
}

func ensureDemoPlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&plandomain.Plan{}).
		Where("tenant_id = ?", DemoTenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	seats := int64(5)
	projects := int64(20)
	storageMB := int64(10 * 1024)
	return tx.WithContext(ctx).Create(&plandomain.Plan{
		ID:            node.Generate(),
		TenantID:      DemoTenantID,
		PlanCode:      demoPlanCode,
		SeatsBase:     &seats,
		ProjectsBase:  &projects,
		StorageBaseMB: &storageMB,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error
}

func ensureDemoUsageTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&usagedomain.UsageSnapshot{}).
		Where("tenant_id = ?", DemoTenantID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&usagedomain.UsageSnapshot{
		ID:            node.Generate(),
		TenantID:      DemoTenantID,
		SeatsUsed:     5,
		ProjectsUsed:  10,
		StorageUsedMB: 3 * 1024,
		RecordedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error
}
