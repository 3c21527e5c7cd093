package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
)

type putUsageRequest struct {
	SeatsUsed     int64   `json:"seats_used"`
	ProjectsUsed  int64   `json:"projects_used"`
	StorageUsedMB float64 `json:"storage_used_mb"`
}

func (s *Server) GetUsage(c *gin.Context) {
	snapshot, err := s.usagesvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) PutUsage(c *gin.Context) {
	var req putUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snapshot, err := s.usagesvc.Put(c.Request.Context(), usagedomain.PutRequest{
		SeatsUsed:     req.SeatsUsed,
		ProjectsUsed:  req.ProjectsUsed,
		StorageUsedMB: req.StorageUsedMB,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
