package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Plan, error)
}
