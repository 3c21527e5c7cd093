package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/agencyhub/entitlex/internal/clock"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	"github.com/agencyhub/entitlex/internal/tenantctx"
	"github.com/agencyhub/entitlex/pkg/units"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  plandomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  plandomain.Repository
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context) (plandomain.Context, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return plandomain.Context{}, plandomain.ErrInvalidTenant
	}

	plan, err := s.repo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return plandomain.Context{}, err
	}
	if plan == nil {
		return plandomain.Context{}, plandomain.ErrPlanNotFound
	}

	return toContext(plan), nil
}

// Put implements domain.Service.
func (s *Service) Put(ctx context.Context, req plandomain.PutRequest) (plandomain.Context, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return plandomain.Context{}, plandomain.ErrInvalidTenant
	}

	code := strings.ToLower(strings.TrimSpace(req.PlanCode))
	if code == "" {
		return plandomain.Context{}, plandomain.ErrInvalidPlanCode
	}
	for _, limit := range []*int64{req.SeatsBase, req.ProjectsBase, req.StorageBaseMB} {
		if limit != nil && *limit < 0 {
			return plandomain.Context{}, plandomain.ErrInvalidLimit
		}
	}

	now := s.clock.Now()
	plan := &plandomain.Plan{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		PlanCode:      code,
		SeatsBase:     req.SeatsBase,
		ProjectsBase:  req.ProjectsBase,
		StorageBaseMB: req.StorageBaseMB,
		PeriodEnd:     req.PeriodEnd,
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, s.db, plan); err != nil {
		return plandomain.Context{}, err
	}

	s.log.Info("plan stored",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_code", code),
	)
	return toContext(plan), nil
}

func toContext(plan *plandomain.Plan) plandomain.Context {
	planCtx := plandomain.Context{
		PlanCode:     plan.PlanCode,
		Tier:         plan.Tier(),
		SeatsBase:    plan.SeatsBase,
		ProjectsBase: plan.ProjectsBase,
		PeriodEnd:    plan.PeriodEnd,
	}
	if plan.StorageBaseMB != nil {
		gb := units.NearestGB(*plan.StorageBaseMB)
		planCtx.StorageBase = &gb
	}
	return planCtx
}
