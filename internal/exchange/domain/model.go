// Package domain contains the entitlement exchange types: proposals,
// computed bounds, point economics, and the persisted override.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/agencyhub/entitlex/internal/catalog"
	"gorm.io/datatypes"
)

// Proposal is a transient, not-yet-committed delta set. Deltas are whole
// units (storage in GB), any sign, and must be multiples of the dimension's
// step. Never persisted when invalid.
type Proposal struct {
	SeatsDelta    int64 `json:"seats_delta"`
	ProjectsDelta int64 `json:"projects_delta"`
	StorageDelta  int64 `json:"storage_delta"`
}

// Delta returns the proposed delta for d.
func (p Proposal) Delta(d catalog.Dimension) int64 {
	switch d {
	case catalog.DimensionSeats:
		return p.SeatsDelta
	case catalog.DimensionProjects:
		return p.ProjectsDelta
	case catalog.DimensionStorage:
		return p.StorageDelta
	}
	return 0
}

// IsZero reports whether the proposal changes nothing.
func (p Proposal) IsZero() bool {
	return p.SeatsDelta == 0 && p.ProjectsDelta == 0 && p.StorageDelta == 0
}

// DimensionBounds is the admissible range for one dimension: the tenant may
// move the limit anywhere in [Floor, Ceiling] around Base.
type DimensionBounds struct {
	Base    int64 `json:"base"`
	Floor   int64 `json:"floor"`
	Ceiling int64 `json:"ceiling"`
}

// Rejection reports one reason a proposal is inadmissible. Dimension is
// empty for tenant-level reasons (eligibility, point balance).
type Rejection struct {
	Dimension catalog.Dimension `json:"dimension,omitempty"`
	Code      string            `json:"code"`
}

// Rejection codes.
const (
	CodeInvalidStep        = "invalid_step"
	CodeBelowFloor         = "below_floor"
	CodeAboveCeiling       = "above_ceiling"
	CodeInsufficientPoints = "insufficient_points"
	CodeNotEligible        = "not_eligible"
	CodeDimensionUnbounded = "dimension_unbounded"
)

// Evaluation is the side-effect-free verdict on a proposal.
type Evaluation struct {
	Admissible    bool                                  `json:"admissible"`
	NoOp          bool                                  `json:"no_op"`
	PointsEarned  float64                               `json:"points_earned"`
	PointsSpent   float64                               `json:"points_spent"`
	PointsBalance float64                               `json:"points_balance"`
	Bounds        map[catalog.Dimension]DimensionBounds `json:"bounds,omitempty"`
	Rejections    []Rejection                           `json:"rejections,omitempty"`
}

// ResourceOverride is the persisted outcome of a valid proposal. At most one
// row per tenant; a new exchange replaces the prior one. Version backs the
// compare-and-set upsert.
type ResourceOverride struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	TenantID      snowflake.ID      `gorm:"column:tenant_id;not null;uniqueIndex:ux_resource_overrides_tenant"`
	SeatsDelta    int64             `gorm:"not null"`
	ProjectsDelta int64             `gorm:"not null"`
	StorageDelta  int64             `gorm:"not null"`
	PointsEarned  float64           `gorm:"not null"`
	PointsSpent   float64           `gorm:"not null"`
	ValidUntil    time.Time         `gorm:"not null"`
	Version       int64             `gorm:"not null"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ResourceOverride) TableName() string { return "resource_overrides" }

// Delta returns the committed delta for d.
func (o ResourceOverride) Delta(d catalog.Dimension) int64 {
	switch d {
	case catalog.DimensionSeats:
		return o.SeatsDelta
	case catalog.DimensionProjects:
		return o.ProjectsDelta
	case catalog.DimensionStorage:
		return o.StorageDelta
	}
	return 0
}

// Active reports whether the override still applies at now.
func (o ResourceOverride) Active(now time.Time) bool {
	return now.Before(o.ValidUntil)
}

// EffectiveLimits is what quota enforcement reads: base limits adjusted by
// the active override. Nil means the dimension is unbounded.
type EffectiveLimits struct {
	Seats     *int64 `json:"seats"`
	Projects  *int64 `json:"projects"`
	StorageGB *int64 `json:"storage_gb"`
}

// Exchange event actions.
const (
	EventApplied = "applied"
	EventCleared = "cleared"
)

// ExchangeEvent is one entry in the append-only exchange audit trail.
type ExchangeEvent struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	TenantID      snowflake.ID      `gorm:"column:tenant_id;not null;index:ix_exchange_events_tenant"`
	Action        string            `gorm:"type:text;not null"`
	SeatsDelta    int64             `gorm:"not null"`
	ProjectsDelta int64             `gorm:"not null"`
	StorageDelta  int64             `gorm:"not null"`
	PointsEarned  float64           `gorm:"not null"`
	PointsSpent   float64           `gorm:"not null"`
	ValidUntil    *time.Time        `gorm:""`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExchangeEvent) TableName() string { return "exchange_events" }
