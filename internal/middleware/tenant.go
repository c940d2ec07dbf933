package middleware

import (
	"context"
	"net/http"

	"soundcheck/internal/common"
	"soundcheck/internal/services"

	"github.com/labstack/echo/v4"
)

// landingResponse is what callers on an unrecognized hostname see. It
// deliberately reveals nothing about which tenants exist.
type landingResponse struct {
	Landing bool   `json:"landing"`
	Message string `json:"message"`
}

// TenantResolver maps the request host to a tenant and must run before any
// authentication. Unknown or inactive hosts short-circuit with a static
// landing notice.
func TenantResolver(tenantService services.TenantService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := common.RequestHost(c)
			tenant, err := tenantService.ResolveHost(c.Request().Context(), host)
			if err != nil {
				c.Logger().Errorf("Failed to resolve host %s: %v", host, err)
				return common.SendServerError(c, "Unable to resolve tenant")
			}
			if tenant == nil {
				return c.JSON(http.StatusOK, &landingResponse{
					Landing: true,
					Message: "No dashboard is configured for this hostname.",
				})
			}

			c.Set(common.EchoTenantKey, tenant)
			ctx := context.WithValue(c.Request().Context(), common.TenantIDKey, tenant.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
