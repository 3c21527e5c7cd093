package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/agencyhub/entitlex/internal/catalog"
	"github.com/agencyhub/entitlex/internal/config"
	"github.com/agencyhub/entitlex/internal/exchange"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	obstracing "github.com/agencyhub/entitlex/internal/observability/tracing"
	"github.com/agencyhub/entitlex/internal/plan"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	"github.com/agencyhub/entitlex/internal/usage"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	catalog.Module,
	plan.Module,
	usage.Module,
	exchange.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin() *gin.Engine {
	return NewEngine()
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	cat         catalog.Catalog
	plansvc     plandomain.Service
	usagesvc    usagedomain.Service
	exchangesvc exchangedomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Catalog     catalog.Catalog
	Plansvc     plandomain.Service
	Usagesvc    usagedomain.Service
	Exchangesvc exchangedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		cat:         p.Catalog,
		plansvc:     p.Plansvc,
		usagesvc:    p.Usagesvc,
		exchangesvc: p.Exchangesvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", TenantContext())

	// -------- Exchange --------
	v1.POST("/exchange/evaluate", s.EvaluateExchange)
	v1.POST("/exchange/apply", s.ApplyExchange)
	v1.GET("/exchange", s.GetExchange)
	v1.DELETE("/exchange", s.ClearExchange)
	v1.GET("/exchange/events", s.ListExchangeEvents)
	v1.GET("/exchange/rates", s.GetExchangeRates)

	// -------- Limits --------
	v1.GET("/limits", s.GetEffectiveLimits)

	// -------- Plan --------
	v1.GET("/plan", s.GetPlan)
	v1.PUT("/plan", s.PutPlan)

	// -------- Usage --------
	v1.GET("/usage", s.GetUsage)
	v1.PUT("/usage", s.PutUsage)
}
