package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/agencyhub/entitlex/internal/cache"
	"github.com/agencyhub/entitlex/internal/catalog"
	"github.com/agencyhub/entitlex/internal/clock"
	"github.com/agencyhub/entitlex/internal/exchange/calc"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	"github.com/agencyhub/entitlex/internal/lock"
	obsmetrics "github.com/agencyhub/entitlex/internal/observability/metrics"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	"github.com/agencyhub/entitlex/internal/tenantctx"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"github.com/agencyhub/entitlex/pkg/db"
	"github.com/agencyhub/entitlex/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	applyLockTTL    = 5 * time.Second
	defaultPageSize = 25
	maxPageSize     = 100
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cat   catalog.Catalog
	repo  exchangedomain.Repository

	plansvc  plandomain.Service
	usagesvc usagedomain.Service

	limits  cache.LimitsCache
	metrics *obsmetrics.Metrics
	locker  *lock.Locker
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Catalog catalog.Catalog
	Repo    exchangedomain.Repository

	Plansvc  plandomain.Service
	Usagesvc usagedomain.Service

	Limits  cache.LimitsCache
	Metrics *obsmetrics.Metrics `optional:"true"`
	Locker  *lock.Locker        `optional:"true"`
}

func NewService(p ServiceParam) exchangedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("exchange.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		cat:      p.Catalog,
		repo:     p.Repo,
		plansvc:  p.Plansvc,
		usagesvc: p.Usagesvc,
		limits:   p.Limits,
		metrics:  p.Metrics,
		locker:   p.Locker,
	}
}

// Evaluate implements domain.Service. It is the live-preview path: pure,
// side-effect free, safe to call on every keystroke.
func (s *Service) Evaluate(ctx context.Context, proposal exchangedomain.Proposal) (exchangedomain.Evaluation, error) {
	if _, ok := tenantctx.TenantIDFromContext(ctx); !ok {
		return exchangedomain.Evaluation{}, exchangedomain.ErrInvalidTenant
	}

	plan, err := s.plansvc.Get(ctx)
	if err != nil {
		return exchangedomain.Evaluation{}, err
	}

	switch plan.Tier {
	case plandomain.TierNone:
		// free tier: no bounds are computed, there is nothing to trade
		ev := exchangedomain.Evaluation{
			Rejections: []exchangedomain.Rejection{{Code: exchangedomain.CodeNotEligible}},
		}
		s.metrics.RecordEvaluation(ctx, false)
		return ev, nil
	case plandomain.TierUnlimited:
		ev := exchangedomain.Evaluation{Admissible: true, NoOp: true}
		s.metrics.RecordEvaluation(ctx, true)
		return ev, nil
	}

	usage, err := s.usagesvc.Get(ctx)
	if err != nil {
		return exchangedomain.Evaluation{}, err
	}

	ev := calc.Evaluate(s.cat, calcLimits(plan, usage), proposal)
	s.metrics.RecordEvaluation(ctx, ev.Admissible)
	return ev, nil
}

// Apply implements domain.Service. Exactly one override row per tenant; the
// upsert is a compare-and-set so concurrent applies cannot interleave.
func (s *Service) Apply(ctx context.Context, proposal exchangedomain.Proposal) (*exchangedomain.ResourceOverride, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return nil, exchangedomain.ErrInvalidTenant
	}

	if s.locker != nil {
		key := "entitlex:apply:" + tenantID.String()
		token, acquired, err := s.locker.TryLock(ctx, key, applyLockTTL)
		if err != nil {
			// the lock is an optimization; the CAS below stays correct
			s.log.Warn("apply lock unavailable", zap.Error(err))
		} else if !acquired {
			return nil, s.conflict(ctx, tenantID)
		} else {
			defer func() {
				if err := s.locker.Release(ctx, key, token); err != nil {
					s.log.Warn("apply lock release failed", zap.Error(err))
				}
			}()
		}
	}

	plan, err := s.plansvc.Get(ctx)
	if err != nil {
		return nil, err
	}

	switch plan.Tier {
	case plandomain.TierNone:
		s.metrics.RecordRejection(ctx, exchangedomain.CodeNotEligible)
		return nil, exchangedomain.ErrNotEligible
	case plandomain.TierUnlimited:
		return nil, exchangedomain.ErrNoOpUnlimited
	}

	usage, err := s.usagesvc.Get(ctx)
	if err != nil {
		return nil, err
	}

	ev := calc.Evaluate(s.cat, calcLimits(plan, usage), proposal)
	if !ev.Admissible {
		for _, r := range ev.Rejections {
			s.metrics.RecordRejection(ctx, r.Code)
		}
		return nil, &exchangedomain.RejectionError{Rejections: ev.Rejections}
	}

	now := s.clock.Now()
	validUntil := now.AddDate(0, 1, 0)
	if plan.PeriodEnd != nil && plan.PeriodEnd.After(now) {
		validUntil = *plan.PeriodEnd
	}

	// the stored row keeps its version even past expiry so the CAS chain
	// never resets under a racing writer
	current, err := s.repo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	override := &exchangedomain.ResourceOverride{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		SeatsDelta:    proposal.SeatsDelta,
		ProjectsDelta: proposal.ProjectsDelta,
		StorageDelta:  proposal.StorageDelta,
		PointsEarned:  ev.PointsEarned,
		PointsSpent:   ev.PointsSpent,
		ValidUntil:    validUntil,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if current == nil {
		if err := s.repo.Insert(ctx, s.db, override); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return nil, s.conflict(ctx, tenantID)
			}
			return nil, err
		}
	} else {
		override.ID = current.ID
		override.Version = current.Version + 1
		override.CreatedAt = current.CreatedAt
		updated, err := s.repo.UpdateCAS(ctx, s.db, override, current.Version)
		if err != nil {
			return nil, err
		}
		if !updated {
			return nil, s.conflict(ctx, tenantID)
		}
	}

	s.appendEvent(ctx, tenantID, exchangedomain.EventApplied, override)
	s.limits.Invalidate(tenantID.String())
	s.metrics.RecordApply(ctx)

	s.log.Info("exchange applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("seats_delta", override.SeatsDelta),
		zap.Int64("projects_delta", override.ProjectsDelta),
		zap.Int64("storage_delta", override.StorageDelta),
		zap.Float64("points_earned", override.PointsEarned),
		zap.Float64("points_spent", override.PointsSpent),
		zap.Time("valid_until", override.ValidUntil),
	)
	return override, nil
}

// Clear implements domain.Service. Clearing when nothing is stored succeeds.
func (s *Service) Clear(ctx context.Context) error {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return exchangedomain.ErrInvalidTenant
	}

	if err := s.repo.DeleteByTenantID(ctx, s.db, tenantID); err != nil {
		return err
	}

	s.appendEvent(ctx, tenantID, exchangedomain.EventCleared, nil)
	s.limits.Invalidate(tenantID.String())
	s.metrics.RecordClear(ctx)
	return nil
}

// GetActive implements domain.Service.
func (s *Service) GetActive(ctx context.Context) (*exchangedomain.ResourceOverride, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return nil, exchangedomain.ErrInvalidTenant
	}

	override, err := s.activeOverride(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if override == nil {
		return nil, exchangedomain.ErrOverrideNotFound
	}
	return override, nil
}

// EffectiveLimits implements domain.Service.
func (s *Service) EffectiveLimits(ctx context.Context) (exchangedomain.EffectiveLimits, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return exchangedomain.EffectiveLimits{}, exchangedomain.ErrInvalidTenant
	}

	if limits, ok := s.limits.Get(tenantID.String()); ok {
		return limits, nil
	}

	plan, err := s.plansvc.Get(ctx)
	if err != nil {
		return exchangedomain.EffectiveLimits{}, err
	}

	override, err := s.activeOverride(ctx, tenantID)
	if err != nil {
		return exchangedomain.EffectiveLimits{}, err
	}

	limits := exchangedomain.EffectiveLimits{
		Seats:     applyDelta(plan.SeatsBase, override, catalog.DimensionSeats),
		Projects:  applyDelta(plan.ProjectsBase, override, catalog.DimensionProjects),
		StorageGB: applyDelta(plan.StorageBase, override, catalog.DimensionStorage),
	}
	s.limits.Set(tenantID.String(), limits)
	return limits, nil
}

// ListEvents implements domain.Service.
func (s *Service) ListEvents(ctx context.Context, req exchangedomain.ListEventsRequest) (exchangedomain.ListEventsResponse, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return exchangedomain.ListEventsResponse{}, exchangedomain.ErrInvalidTenant
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeID snowflake.ID
	if req.PageToken != "" {
		cursor, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return exchangedomain.ListEventsResponse{}, err
		}
		parsed, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return exchangedomain.ListEventsResponse{}, err
		}
		beforeID = parsed
	}

	rows, err := s.repo.ListEvents(ctx, s.db, tenantID, beforeID, limit+1)
	if err != nil {
		return exchangedomain.ListEventsResponse{}, err
	}

	rows, pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(e *exchangedomain.ExchangeEvent) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})

	events := make([]exchangedomain.ExchangeEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, *row)
	}
	return exchangedomain.ListEventsResponse{
		PageInfo: *pageInfo,
		Events:   events,
	}, nil
}

// activeOverride returns the unexpired override, lazily garbage-collecting
// an expired row.
func (s *Service) activeOverride(ctx context.Context, tenantID snowflake.ID) (*exchangedomain.ResourceOverride, error) {
	override, err := s.repo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if override == nil {
		return nil, nil
	}

	now := s.clock.Now()
	if !override.Active(now) {
		if err := s.repo.DeleteExpired(ctx, s.db, tenantID, now); err != nil {
			s.log.Warn("expired override cleanup failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
		return nil, nil
	}
	return override, nil
}

// conflict reloads the committed row so a losing writer sees the winner's
// state, never a merge.
func (s *Service) conflict(ctx context.Context, tenantID snowflake.ID) error {
	s.metrics.RecordConflict(ctx)
	committed, err := s.repo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return err
	}
	return &exchangedomain.ConflictError{Committed: committed}
}

func (s *Service) appendEvent(ctx context.Context, tenantID snowflake.ID, action string, override *exchangedomain.ResourceOverride) {
	event := &exchangedomain.ExchangeEvent{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Action:    action,
		CreatedAt: s.clock.Now(),
	}
	if override != nil {
		event.SeatsDelta = override.SeatsDelta
		event.ProjectsDelta = override.ProjectsDelta
		event.StorageDelta = override.StorageDelta
		event.PointsEarned = override.PointsEarned
		event.PointsSpent = override.PointsSpent
		validUntil := override.ValidUntil
		event.ValidUntil = &validUntil
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Warn("exchange event append failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func calcLimits(plan plandomain.Context, usage usagedomain.Snapshot) calc.Limits {
	return calc.Limits{
		Base: map[catalog.Dimension]*int64{
			catalog.DimensionSeats:    plan.SeatsBase,
			catalog.DimensionProjects: plan.ProjectsBase,
			catalog.DimensionStorage:  plan.StorageBase,
		},
		Usage: map[catalog.Dimension]int64{
			catalog.DimensionSeats:    usage.SeatsUsed,
			catalog.DimensionProjects: usage.ProjectsUsed,
			catalog.DimensionStorage:  usage.StorageUsedGB,
		},
	}
}

func applyDelta(base *int64, override *exchangedomain.ResourceOverride, d catalog.Dimension) *int64 {
	if base == nil {
		return nil
	}
	value := *base
	if override != nil {
		value += override.Delta(d)
	}
	return &value
}
