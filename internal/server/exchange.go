package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agencyhub/entitlex/internal/catalog"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	"github.com/agencyhub/entitlex/pkg/db/pagination"
)

type proposalRequest struct {
	SeatsDelta    int64 `json:"seats_delta"`
	ProjectsDelta int64 `json:"projects_delta"`
	StorageDelta  int64 `json:"storage_delta"`
}

func (r proposalRequest) toProposal() exchangedomain.Proposal {
	return exchangedomain.Proposal{
		SeatsDelta:    r.SeatsDelta,
		ProjectsDelta: r.ProjectsDelta,
		StorageDelta:  r.StorageDelta,
	}
}

type applyResponse struct {
	NoOp     bool                             `json:"no_op"`
	Override *exchangedomain.ResourceOverride `json:"override,omitempty"`
}

func (s *Server) EvaluateExchange(c *gin.Context) {
	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	evaluation, err := s.exchangesvc.Evaluate(c.Request.Context(), req.toProposal())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, evaluation)
}

func (s *Server) ApplyExchange(c *gin.Context) {
	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	override, err := s.exchangesvc.Apply(c.Request.Context(), req.toProposal())
	if err != nil {
		// unlimited plans have nothing to trade; applying is a stated no-op
		if errors.Is(err, exchangedomain.ErrNoOpUnlimited) {
			c.JSON(http.StatusOK, applyResponse{NoOp: true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, applyResponse{Override: override})
}

func (s *Server) GetExchange(c *gin.Context) {
	override, err := s.exchangesvc.GetActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, override)
}

func (s *Server) ClearExchange(c *gin.Context) {
	if err := s.exchangesvc.Clear(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListExchangeEvents(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.exchangesvc.ListEvents(c.Request.Context(), exchangedomain.ListEventsRequest{
		PageToken: page.PageToken,
		PageSize:  page.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type rateResponse struct {
	Dimension catalog.Dimension `json:"dimension"`
	SellRate  float64           `json:"sell_rate"`
	BuyRate   float64           `json:"buy_rate"`
	Step      int64             `json:"step"`
	Minimum   int64             `json:"minimum"`
}

func (s *Server) GetExchangeRates(c *gin.Context) {
	rates := make([]rateResponse, 0, len(catalog.Dimensions()))
	for _, d := range catalog.Dimensions() {
		rate := s.cat.MustRate(d)
		rates = append(rates, rateResponse{
			Dimension: d,
			SellRate:  rate.SellRate,
			BuyRate:   rate.BuyRate,
			Step:      rate.Step,
			Minimum:   rate.Minimum,
		})
	}

	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (s *Server) GetEffectiveLimits(c *gin.Context) {
	limits, err := s.exchangesvc.EffectiveLimits(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, limits)
}
