// Package domain contains persistence models for tenant subscription plans.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Tier classifies what a plan may do with entitlement exchange.
type Tier string

const (
	// TierNone has no tradable surplus (free plans).
	TierNone Tier = "none"
	// TierTradable may exchange entitlements between dimensions.
	TierTradable Tier = "tradable"
	// TierUnlimited has unbounded dimensions; exchange is a no-op.
	TierUnlimited Tier = "unlimited"
)

// TierForPlan derives the eligibility tier from a plan code. Unknown codes
// fail closed to TierNone.
func TierForPlan(planCode string) Tier {
	switch strings.ToLower(strings.TrimSpace(planCode)) {
	case "starter", "professional":
		return TierTradable
	case "enterprise":
		return TierUnlimited
	case "free":
		return TierNone
	default:
		return TierNone
	}
}

// Plan captures a tenant's subscription limits. Nil limits mean the
// dimension is unbounded. Storage is stored in MB as delivered by the plan
// backend and converted to GB at read time.
type Plan struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	TenantID      snowflake.ID      `gorm:"column:tenant_id;not null;uniqueIndex:ux_plans_tenant"`
	PlanCode      string            `gorm:"type:text;not null"`
	SeatsBase     *int64            `gorm:""`
	ProjectsBase  *int64            `gorm:""`
	StorageBaseMB *int64            `gorm:"column:storage_base_mb"`
	PeriodEnd     *time.Time        `gorm:""`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// Tier returns the eligibility tier of this plan.
func (p Plan) Tier() Tier { return TierForPlan(p.PlanCode) }
