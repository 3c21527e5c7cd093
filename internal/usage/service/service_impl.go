package service

import (
	"context"

	"github.com/bwmarrin/snowflake"

	"github.com/agencyhub/entitlex/internal/clock"
	"github.com/agencyhub/entitlex/internal/tenantctx"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"github.com/agencyhub/entitlex/pkg/units"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  usagedomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  usagedomain.Repository
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("usage.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Get implements domain.Service. Missing snapshots read as zero consumption.
func (s *Service) Get(ctx context.Context) (usagedomain.Snapshot, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return usagedomain.Snapshot{}, usagedomain.ErrInvalidTenant
	}

	row, err := s.repo.FindByTenantID(ctx, s.db, tenantID)
	if err != nil {
		return usagedomain.Snapshot{}, err
	}
	if row == nil {
		return usagedomain.Snapshot{}, nil
	}

	return usagedomain.Snapshot{
		SeatsUsed:     row.SeatsUsed,
		ProjectsUsed:  row.ProjectsUsed,
		StorageUsedGB: units.CeilGB(row.StorageUsedMB),
		StorageUsedMB: row.StorageUsedMB,
		RecordedAt:    row.RecordedAt,
	}, nil
}

// Put implements domain.Service.
func (s *Service) Put(ctx context.Context, req usagedomain.PutRequest) (usagedomain.Snapshot, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok {
		return usagedomain.Snapshot{}, usagedomain.ErrInvalidTenant
	}
	if req.SeatsUsed < 0 || req.ProjectsUsed < 0 || req.StorageUsedMB < 0 {
		return usagedomain.Snapshot{}, usagedomain.ErrInvalidValue
	}

	now := s.clock.Now()
	row := &usagedomain.UsageSnapshot{
		ID:            s.genID.Generate(),
		TenantID:      tenantID,
		SeatsUsed:     req.SeatsUsed,
		ProjectsUsed:  req.ProjectsUsed,
		StorageUsedMB: req.StorageUsedMB,
		RecordedAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Upsert(ctx, s.db, row); err != nil {
		return usagedomain.Snapshot{}, err
	}

	return usagedomain.Snapshot{
		SeatsUsed:     row.SeatsUsed,
		ProjectsUsed:  row.ProjectsUsed,
		StorageUsedGB: units.CeilGB(row.StorageUsedMB),
		StorageUsedMB: row.StorageUsedMB,
		RecordedAt:    row.RecordedAt,
	}, nil
}
