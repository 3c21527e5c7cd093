package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string                           `json:"type"`
	Message   string                           `json:"message"`
	Errors    []ValidationError                `json:"errors,omitempty"`
	Committed *exchangedomain.ResourceOverride `json:"committed,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var rejErr *exchangedomain.RejectionError
	if errors.As(err, &rejErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "proposal_rejected",
			Message: "proposal rejected",
			Errors:  rejectionDetails(rejErr.Rejections),
		}
	}

	var conflictErr *exchangedomain.ConflictError
	if errors.As(err, &conflictErr) {
		return http.StatusConflict, errorPayload{
			Type:      "concurrent_modification",
			Message:   "the override changed since it was read",
			Committed: conflictErr.Committed,
		}
	}

	switch {
	case errors.Is(err, exchangedomain.ErrNotEligible):
		return http.StatusForbidden, errorPayload{
			Type:    "not_eligible",
			Message: "plan tier does not allow entitlement exchange",
		}
	case errors.Is(err, exchangedomain.ErrInvalidTenant),
		errors.Is(err, plandomain.ErrInvalidTenant),
		errors.Is(err, usagedomain.ErrInvalidTenant):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: HeaderTenant, Code: "invalid_tenant", Message: "tenant header missing or invalid"},
			},
		}
	case errors.Is(err, plandomain.ErrInvalidPlanCode),
		errors.Is(err, plandomain.ErrInvalidLimit),
		errors.Is(err, usagedomain.ErrInvalidValue),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: err.Error(), Message: "invalid request"},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func rejectionDetails(rejections []exchangedomain.Rejection) []ValidationError {
	details := make([]ValidationError, 0, len(rejections))
	for _, r := range rejections {
		field := string(r.Dimension)
		if field == "" {
			field = "proposal"
		}
		details = append(details, ValidationError{
			Field:   field,
			Code:    r.Code,
			Message: rejectionMessage(r.Code),
		})
	}
	return details
}

func rejectionMessage(code string) string {
	switch code {
	case exchangedomain.CodeInvalidStep:
		return "delta is not a multiple of the dimension step"
	case exchangedomain.CodeBelowFloor:
		return "resulting limit falls below the floor"
	case exchangedomain.CodeAboveCeiling:
		return "resulting limit exceeds the ceiling"
	case exchangedomain.CodeInsufficientPoints:
		return "points spent exceed points earned"
	case exchangedomain.CodeNotEligible:
		return "plan tier does not allow entitlement exchange"
	case exchangedomain.CodeDimensionUnbounded:
		return "dimension has no base limit to trade against"
	default:
		return "proposal rejected"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, exchangedomain.ErrOverrideNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
