package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() exchangedomain.Repository {
	return &repo{}
}

func (r *repo) FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*exchangedomain.ResourceOverride, error) {
	var override exchangedomain.ResourceOverride
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, seats_delta, projects_delta, storage_delta,
		 points_earned, points_spent, valid_until, version, metadata, created_at, updated_at
		 FROM resource_overrides WHERE tenant_id = ?`,
		tenantID,
	).Scan(&override).Error
	if err != nil {
		return nil, err
	}
	if override.ID == 0 {
		return nil, nil
	}
	return &override, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, override *exchangedomain.ResourceOverride) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO resource_overrides (
			id, tenant_id, seats_delta, projects_delta, storage_delta,
			points_earned, points_spent, valid_until, version, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		override.ID,
		override.TenantID,
		override.SeatsDelta,
		override.ProjectsDelta,
		override.StorageDelta,
		override.PointsEarned,
		override.PointsSpent,
		override.ValidUntil,
		override.Version,
		override.Metadata,
		override.CreatedAt,
		override.UpdatedAt,
	).Error
}

func (r *repo) UpdateCAS(ctx context.Context, db *gorm.DB, override *exchangedomain.ResourceOverride, expectedVersion int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE resource_overrides SET
			seats_delta = ?, projects_delta = ?, storage_delta = ?,
			points_earned = ?, points_spent = ?, valid_until = ?,
			version = ?, metadata = ?, updated_at = ?
		 WHERE tenant_id = ? AND version = ?`,
		override.SeatsDelta,
		override.ProjectsDelta,
		override.StorageDelta,
		override.PointsEarned,
		override.PointsSpent,
		override.ValidUntil,
		override.Version,
		override.Metadata,
		override.UpdatedAt,
		override.TenantID,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) DeleteByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM resource_overrides WHERE tenant_id = ?`,
		tenantID,
	).Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM resource_overrides WHERE tenant_id = ? AND valid_until <= ?`,
		tenantID,
		now,
	).Error
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *exchangedomain.ExchangeEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO exchange_events (
			id, tenant_id, action, seats_delta, projects_delta, storage_delta,
			points_earned, points_spent, valid_until, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.TenantID,
		event.Action,
		event.SeatsDelta,
		event.ProjectsDelta,
		event.StorageDelta,
		event.PointsEarned,
		event.PointsSpent,
		event.ValidUntil,
		event.Metadata,
		event.CreatedAt,
	).Error
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, beforeID snowflake.ID, limit int32) ([]*exchangedomain.ExchangeEvent, error) {
	query := `SELECT id, tenant_id, action, seats_delta, projects_delta, storage_delta,
		 points_earned, points_spent, valid_until, metadata, created_at
		 FROM exchange_events WHERE tenant_id = ?`
	args := []any{tenantID}
	if beforeID != 0 {
		query += ` AND id < ?`
		args = append(args, beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var events []*exchangedomain.ExchangeEvent
	err := db.WithContext(ctx).Raw(query, args...).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
