package middleware

import (
	"fmt"
	"time"

	"soundcheck/internal/caching"
	"soundcheck/internal/common"
	"soundcheck/internal/models"

	"github.com/labstack/echo/v4"
)

// RateLimitByIP applies a fixed-window limit keyed on the client IP. Used on
// the unauthenticated endpoints (login, password reset). If the limiter
// backend is down the request is allowed through; availability wins over
// strictness here.
func RateLimitByIP(cache caching.CacheService, name string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s:ip:%s", name, common.ClientIP(c))
			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				c.Logger().Errorf("Rate limit check failed for %s: %v", key, err)
			} else if limited {
				return common.SendRateLimitedError(c)
			}
			return next(c)
		}
	}
}

// RateLimitByUser applies a fixed-window limit keyed on the authenticated
// user. Must run after Session.
func RateLimitByUser(cache caching.CacheService, name string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(common.EchoCurrentUserKey).(*models.User)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			key := fmt.Sprintf("%s:user:%s", name, user.ID)
			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				c.Logger().Errorf("Rate limit check failed for %s: %v", key, err)
			} else if limited {
				return common.SendRateLimitedError(c)
			}
			return next(c)
		}
	}
}
