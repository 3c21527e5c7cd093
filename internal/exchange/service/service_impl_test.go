package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agencyhub/entitlex/internal/cache"
	"github.com/agencyhub/entitlex/internal/catalog"
	"github.com/agencyhub/entitlex/internal/clock"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	exchangerepo "github.com/agencyhub/entitlex/internal/exchange/repository"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	planrepo "github.com/agencyhub/entitlex/internal/plan/repository"
	planservice "github.com/agencyhub/entitlex/internal/plan/service"
	"github.com/agencyhub/entitlex/internal/tenantctx"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	usagerepo "github.com/agencyhub/entitlex/internal/usage/repository"
	usageservice "github.com/agencyhub/entitlex/internal/usage/service"
)

type fixture struct {
	svc      exchangedomain.Service
	plansvc  plandomain.Service
	usagesvc usagedomain.Service
	clock    *clock.FakeClock
	db       *gorm.DB
	node     *snowflake.Node
	tenantID snowflake.ID
}

func setupExchange(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&plandomain.Plan{},
		&usagedomain.UsageSnapshot{},
		&exchangedomain.ResourceOverride{},
		&exchangedomain.ExchangeEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	plansvc := planservice.NewService(planservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  planrepo.Provide(),
	})
	usagesvc := usageservice.NewService(usageservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  usagerepo.Provide(),
	})
	svc := NewService(ServiceParam{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Catalog:  catalog.Default(),
		Repo:     exchangerepo.Provide(),
		Plansvc:  plansvc,
		Usagesvc: usagesvc,
		Limits:   cache.NewLimitsCache(),
	})

	return &fixture{
		svc:      svc,
		plansvc:  plansvc,
		usagesvc: usagesvc,
		clock:    fake,
		db:       db,
		node:     node,
		tenantID: node.Generate(),
	}
}

func (f *fixture) ctx() context.Context {
	return tenantctx.WithTenantID(context.Background(), f.tenantID)
}

// seedProfessional stores the reference tenant: professional plan with
// 5 seats, 20 projects, 10 GB, consuming 5 seats, 10 projects, 3 GB.
func (f *fixture) seedProfessional(t *testing.T) {
	t.Helper()
	ctx := f.ctx()

	_, err := f.plansvc.Put(ctx, plandomain.PutRequest{
		PlanCode:      "professional",
		SeatsBase:     ptr(5),
		ProjectsBase:  ptr(20),
		StorageBaseMB: ptr(10 * 1024),
	})
	require.NoError(t, err)

	_, err = f.usagesvc.Put(ctx, usagedomain.PutRequest{
		SeatsUsed:     5,
		ProjectsUsed:  10,
		StorageUsedMB: 3 * 1024,
	})
	require.NoError(t, err)
}

func ptr(v int64) *int64 { return &v }

func TestEvaluateAdmissible(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)

	ev, err := f.svc.Evaluate(f.ctx(), exchangedomain.Proposal{
		ProjectsDelta: -10,
		StorageDelta:  2,
	})
	require.NoError(t, err)

	assert.True(t, ev.Admissible)
	assert.False(t, ev.NoOp)
	assert.InDelta(t, 8.0, ev.PointsEarned, 1e-9)
	assert.InDelta(t, 2.0, ev.PointsSpent, 1e-9)
	assert.InDelta(t, 6.0, ev.PointsBalance, 1e-9)

	assert.Equal(t, int64(6), ev.Bounds[catalog.DimensionSeats].Ceiling)
	assert.Equal(t, int64(20), ev.Bounds[catalog.DimensionProjects].Ceiling)
	assert.Equal(t, int64(18), ev.Bounds[catalog.DimensionStorage].Ceiling)
	assert.Equal(t, int64(5), ev.Bounds[catalog.DimensionSeats].Floor)
	assert.Equal(t, int64(10), ev.Bounds[catalog.DimensionProjects].Floor)
	assert.Equal(t, int64(3), ev.Bounds[catalog.DimensionStorage].Floor)
}

func TestEvaluateInsufficientPoints(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)

	ev, err := f.svc.Evaluate(f.ctx(), exchangedomain.Proposal{SeatsDelta: 3})
	require.NoError(t, err)

	assert.False(t, ev.Admissible)
	codes := rejectionCodes(ev.Rejections)
	assert.Contains(t, codes, exchangedomain.CodeAboveCeiling)
	assert.Contains(t, codes, exchangedomain.CodeInsufficientPoints)
}

func TestEvaluateFreeTierNotEligible(t *testing.T) {
	f := setupExchange(t)
	ctx := f.ctx()

	_, err := f.plansvc.Put(ctx, plandomain.PutRequest{
		PlanCode:  "free",
		SeatsBase: ptr(2),
	})
	require.NoError(t, err)

	ev, err := f.svc.Evaluate(ctx, exchangedomain.Proposal{SeatsDelta: 1})
	require.NoError(t, err)
	assert.False(t, ev.Admissible)
	assert.Empty(t, ev.Bounds)
	assert.Equal(t, []exchangedomain.Rejection{{Code: exchangedomain.CodeNotEligible}}, ev.Rejections)

	_, err = f.svc.Apply(ctx, exchangedomain.Proposal{SeatsDelta: 1})
	assert.ErrorIs(t, err, exchangedomain.ErrNotEligible)
}

func TestUnlimitedTierNoOp(t *testing.T) {
	f := setupExchange(t)
	ctx := f.ctx()

	_, err := f.plansvc.Put(ctx, plandomain.PutRequest{PlanCode: "enterprise"})
	require.NoError(t, err)

	ev, err := f.svc.Evaluate(ctx, exchangedomain.Proposal{SeatsDelta: 1})
	require.NoError(t, err)
	assert.True(t, ev.Admissible)
	assert.True(t, ev.NoOp)

	_, err = f.svc.Apply(ctx, exchangedomain.Proposal{SeatsDelta: 1})
	assert.ErrorIs(t, err, exchangedomain.ErrNoOpUnlimited)
}

func TestEvaluateWithoutPlan(t *testing.T) {
	f := setupExchange(t)

	_, err := f.svc.Evaluate(f.ctx(), exchangedomain.Proposal{SeatsDelta: 1})
	assert.ErrorIs(t, err, plandomain.ErrPlanNotFound)
}

func TestApplyPersistsOverride(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	override, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)
	require.NotNil(t, override)

	assert.Equal(t, f.tenantID, override.TenantID)
	assert.Equal(t, int64(1), override.Version)
	assert.Equal(t, int64(-10), override.ProjectsDelta)
	assert.Equal(t, int64(2), override.StorageDelta)
	assert.InDelta(t, 8.0, override.PointsEarned, 1e-9)
	assert.InDelta(t, 2.0, override.PointsSpent, 1e-9)
	// no period end on the plan, one month of validity from now
	assert.Equal(t, f.clock.Now().AddDate(0, 1, 0), override.ValidUntil)

	got, err := f.svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, override.ID, got.ID)
}

func TestApplyHonorsPeriodEnd(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	periodEnd := f.clock.Now().Add(10 * 24 * time.Hour)
	_, err := f.plansvc.Put(ctx, plandomain.PutRequest{
		PlanCode:      "professional",
		SeatsBase:     ptr(5),
		ProjectsBase:  ptr(20),
		StorageBaseMB: ptr(10 * 1024),
		PeriodEnd:     &periodEnd,
	})
	require.NoError(t, err)

	override, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)
	assert.True(t, override.ValidUntil.Equal(periodEnd))
}

func TestApplyReplacesPriorOverride(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	first, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)

	second, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -5, StorageDelta: 1})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, int64(-5), second.ProjectsDelta)
	assert.Equal(t, int64(1), second.StorageDelta)

	assert.Equal(t, int64(1), countOverrides(t, f.db))

	got, err := f.svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got.ProjectsDelta)
}

func TestApplyRejectedProposal(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	_, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -3})
	require.Error(t, err)
	assert.ErrorIs(t, err, exchangedomain.ErrProposalRejected)

	var rejErr *exchangedomain.RejectionError
	require.ErrorAs(t, err, &rejErr)
	assert.Contains(t, rejectionCodes(rejErr.Rejections), exchangedomain.CodeInvalidStep)

	assert.Equal(t, int64(0), countOverrides(t, f.db))
}

func TestApplyConflictReturnsCommittedRow(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	winner, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)

	// a racing writer bumped the version between read and write
	stale := &staleCASRepo{Repository: exchangerepo.Provide()}
	svc := NewService(ServiceParam{
		DB:       f.db,
		Log:      zap.NewNop(),
		GenID:    f.node,
		Clock:    f.clock,
		Catalog:  catalog.Default(),
		Repo:     stale,
		Plansvc:  f.plansvc,
		Usagesvc: f.usagesvc,
		Limits:   cache.NewLimitsCache(),
	})

	_, err = svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -5})
	require.Error(t, err)
	assert.ErrorIs(t, err, exchangedomain.ErrConcurrentModification)

	var conflict *exchangedomain.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Committed)
	assert.Equal(t, winner.ID, conflict.Committed.ID)
	assert.Equal(t, winner.Version, conflict.Committed.Version)
}

func TestClearIsIdempotent(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	require.NoError(t, f.svc.Clear(ctx))

	_, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10})
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx))
	_, err = f.svc.GetActive(ctx)
	assert.ErrorIs(t, err, exchangedomain.ErrOverrideNotFound)

	require.NoError(t, f.svc.Clear(ctx))
}

func TestOverrideExpiresAtReadTime(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	_, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)

	f.clock.Advance(32 * 24 * time.Hour)

	_, err = f.svc.GetActive(ctx)
	assert.ErrorIs(t, err, exchangedomain.ErrOverrideNotFound)
	// reads garbage-collect the expired row
	assert.Equal(t, int64(0), countOverrides(t, f.db))

	limits, err := f.svc.EffectiveLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), *limits.StorageGB)
}

func TestEffectiveLimitsComposeOverride(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	limits, err := f.svc.EffectiveLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *limits.Seats)
	assert.Equal(t, int64(20), *limits.Projects)
	assert.Equal(t, int64(10), *limits.StorageGB)

	_, err = f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)

	limits, err = f.svc.EffectiveLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *limits.Seats)
	assert.Equal(t, int64(10), *limits.Projects)
	assert.Equal(t, int64(12), *limits.StorageGB)

	require.NoError(t, f.svc.Clear(ctx))

	limits, err = f.svc.EffectiveLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), *limits.Projects)
	assert.Equal(t, int64(10), *limits.StorageGB)
}

func TestEffectiveLimitsUnboundedDimension(t *testing.T) {
	f := setupExchange(t)
	ctx := f.ctx()

	_, err := f.plansvc.Put(ctx, plandomain.PutRequest{
		PlanCode:      "starter",
		SeatsBase:     ptr(3),
		StorageBaseMB: ptr(5 * 1024),
	})
	require.NoError(t, err)

	limits, err := f.svc.EffectiveLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *limits.Seats)
	assert.Nil(t, limits.Projects)
	assert.Equal(t, int64(5), *limits.StorageGB)
}

func TestListEventsNewestFirst(t *testing.T) {
	f := setupExchange(t)
	f.seedProfessional(t)
	ctx := f.ctx()

	_, err := f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -10, StorageDelta: 2})
	require.NoError(t, err)
	require.NoError(t, f.svc.Clear(ctx))
	_, err = f.svc.Apply(ctx, exchangedomain.Proposal{ProjectsDelta: -5})
	require.NoError(t, err)

	page, err := f.svc.ListEvents(ctx, exchangedomain.ListEventsRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, exchangedomain.EventApplied, page.Events[0].Action)
	assert.Equal(t, int64(-5), page.Events[0].ProjectsDelta)
	assert.Equal(t, exchangedomain.EventCleared, page.Events[1].Action)

	page, err = f.svc.ListEvents(ctx, exchangedomain.ListEventsRequest{
		PageSize:  2,
		PageToken: page.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, exchangedomain.EventApplied, page.Events[0].Action)
	assert.Equal(t, int64(-10), page.Events[0].ProjectsDelta)
}

func TestMissingTenantContext(t *testing.T) {
	f := setupExchange(t)
	ctx := context.Background()

	_, err := f.svc.Evaluate(ctx, exchangedomain.Proposal{})
	assert.ErrorIs(t, err, exchangedomain.ErrInvalidTenant)
	_, err = f.svc.Apply(ctx, exchangedomain.Proposal{})
	assert.ErrorIs(t, err, exchangedomain.ErrInvalidTenant)
	assert.ErrorIs(t, f.svc.Clear(ctx), exchangedomain.ErrInvalidTenant)
	_, err = f.svc.EffectiveLimits(ctx)
	assert.ErrorIs(t, err, exchangedomain.ErrInvalidTenant)
}

// staleCASRepo reports every compare-and-set as lost.
type staleCASRepo struct {
	exchangedomain.Repository
}

func (r *staleCASRepo) UpdateCAS(ctx context.Context, db *gorm.DB, override *exchangedomain.ResourceOverride, expectedVersion int64) (bool, error) {
	return false, nil
}

func rejectionCodes(rejections []exchangedomain.Rejection) []string {
	codes := make([]string, 0, len(rejections))
	for _, r := range rejections {
		codes = append(codes, r.Code)
	}
	return codes
}

func countOverrides(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&exchangedomain.ResourceOverride{}).Count(&count).Error; err != nil {
		t.Fatalf("count overrides: %v", err)
	}
	return count
}
