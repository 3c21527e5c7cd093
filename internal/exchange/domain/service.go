package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agencyhub/entitlex/pkg/db/pagination"
)

type ListEventsRequest struct {
	PageToken string
	PageSize  int32
}

type ListEventsResponse struct {
	pagination.PageInfo
	Events []ExchangeEvent `json:"events"`
}

type Service interface {
	// Evaluate previews a proposal without touching storage.
	Evaluate(ctx context.Context, proposal Proposal) (Evaluation, error)
	// Apply commits a valid proposal, replacing any prior override.
	Apply(ctx context.Context, proposal Proposal) (*ResourceOverride, error)
	// Clear removes the active override. Clearing when none exists succeeds.
	Clear(ctx context.Context) error
	// GetActive returns the unexpired override, ErrOverrideNotFound otherwise.
	GetActive(ctx context.Context) (*ResourceOverride, error)
	// EffectiveLimits composes base limits with the active override.
	EffectiveLimits(ctx context.Context) (EffectiveLimits, error)
	// ListEvents pages through the exchange audit trail, newest first.
	ListEvents(ctx context.Context, req ListEventsRequest) (ListEventsResponse, error)
}

var (
	ErrInvalidTenant          = errors.New("invalid_tenant")
	ErrNotEligible            = errors.New("not_eligible")
	ErrNoOpUnlimited          = errors.New("no_op_unlimited")
	ErrProposalRejected       = errors.New("proposal_rejected")
	ErrOverrideNotFound       = errors.New("override_not_found")
	ErrConcurrentModification = errors.New("concurrent_modification")
)

// RejectionError aggregates the per-dimension and tenant-level reasons a
// proposal was refused. It unwraps to ErrProposalRejected.
type RejectionError struct {
	Rejections []Rejection
}

func (e *RejectionError) Error() string {
	codes := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		if r.Dimension != "" {
			codes = append(codes, fmt.Sprintf("%s:%s", r.Dimension, r.Code))
		} else {
			codes = append(codes, r.Code)
		}
	}
	return "proposal rejected: " + strings.Join(codes, ", ")
}

func (e *RejectionError) Unwrap() error { return ErrProposalRejected }

// ConflictError reports a lost upsert race. Committed is the row the winner
// wrote, so callers can reconcile without a second read.
type ConflictError struct {
	Committed *ResourceOverride
}

func (e *ConflictError) Error() string { return "concurrent modification of resource override" }

func (e *ConflictError) Unwrap() error { return ErrConcurrentModification }
