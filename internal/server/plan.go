package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
)

type putPlanRequest struct {
	PlanCode      string         `json:"plan_code"`
	SeatsBase     *int64         `json:"seats_base"`
	ProjectsBase  *int64         `json:"projects_base"`
	StorageBaseMB *int64         `json:"storage_base_mb"`
	PeriodEnd     *time.Time     `json:"period_end,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (s *Server) GetPlan(c *gin.Context) {
	plan, err := s.plansvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (s *Server) PutPlan(c *gin.Context) {
	var req putPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan, err := s.plansvc.Put(c.Request.Context(), plandomain.PutRequest{
		PlanCode:      strings.TrimSpace(req.PlanCode),
		SeatsBase:     req.SeatsBase,
		ProjectsBase:  req.ProjectsBase,
		StorageBaseMB: req.StorageBaseMB,
		PeriodEnd:     req.PeriodEnd,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
