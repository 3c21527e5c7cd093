package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/agencyhub/entitlex/internal/tenantctx"
)

// HeaderTenant identifies the acting tenant on every /v1 request.
const HeaderTenant = "X-Tenant-ID"

// TenantContext resolves the tenant from the request header and injects it
// into the request context for the service layer.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if raw == "" {
			AbortWithError(c, newValidationError(HeaderTenant, "missing_tenant", "tenant header is required"))
			return
		}

		tenantID, err := snowflake.ParseString(raw)
		if err != nil || tenantID == 0 {
			AbortWithError(c, newValidationError(HeaderTenant, "invalid_tenant", "tenant header is not a valid id"))
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
