package middleware

import (
	"context"

	"soundcheck/internal/caching"
	"soundcheck/internal/common"
	"soundcheck/internal/models"
	"soundcheck/internal/repositories"
	"soundcheck/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWT validates the bearer token signature and parses the claims. Session
// liveness is checked separately in Session.
func JWT(jwtSecret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(jwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(services.JWTCustomClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	})
}

// Session resolves the parsed token into a live server-side session and the
// backing user record. A structurally valid JWT whose Redis session has been
// deleted or expired is rejected, as is a token minted for another tenant
// than the one the hostname resolved to.
func Session(userRepo repositories.UserRepository, cache caching.CacheService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			claims, ok := token.Claims.(*services.JWTCustomClaims)
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			tenant, ok := c.Get(common.EchoTenantKey).(*models.Tenant)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if claims.TenantID != tenant.ID.String() {
				return common.SendUnauthorizedError(c)
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return common.SendUnauthorizedError(c)
			}
			sessionID := claims.ID
			if sessionID == "" {
				return common.SendUnauthorizedError(c)
			}

			ctx := c.Request().Context()
			session, err := cache.GetSession(ctx, tenant.ID, sessionID)
			if err != nil {
				c.Logger().Errorf("Failed to load session %s: %v", sessionID, err)
				return common.SendServerError(c, "Unable to verify session")
			}
			if session == nil || session.UserID != userID {
				return common.SendUnauthorizedError(c)
			}

			user, err := userRepo.GetByID(ctx, tenant.ID, userID)
			if err != nil {
				c.Logger().Errorf("Failed to load user %s: %v", userID, err)
				return common.SendServerError(c, "Unable to load user")
			}
			if user == nil || !user.IsActive {
				return common.SendUnauthorizedError(c)
			}

			c.Set(common.EchoCurrentUserKey, user)
			c.Set(common.EchoSessionKey, session)

			ctx = context.WithValue(ctx, common.UserIDKey, user.ID)
			ctx = context.WithValue(ctx, common.SessionIDKey, sessionID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
