package domain

import (
	"context"
	"errors"
	"time"
)

// Context is the plan view the exchange engine consumes: limits in whole
// units (storage already in GB) plus the eligibility tier and period end.
type Context struct {
	PlanCode     string     `json:"plan_code"`
	Tier         Tier       `json:"tier"`
	SeatsBase    *int64     `json:"seats_base"`
	ProjectsBase *int64     `json:"projects_base"`
	StorageBase  *int64     `json:"storage_base_gb"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
}

type PutRequest struct {
	PlanCode      string         `json:"plan_code"`
	SeatsBase     *int64         `json:"seats_base"`
	ProjectsBase  *int64         `json:"projects_base"`
	StorageBaseMB *int64         `json:"storage_base_mb"`
	PeriodEnd     *time.Time     `json:"period_end,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type Service interface {
	Get(ctx context.Context) (Context, error)
	Put(ctx context.Context, req PutRequest) (Context, error)
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidPlanCode = errors.New("invalid_plan_code")
	ErrInvalidLimit    = errors.New("invalid_limit")
	ErrPlanNotFound    = errors.New("plan_not_found")
)
