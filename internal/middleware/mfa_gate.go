package middleware

import (
	"net/http"

	"soundcheck/internal/caching"
	"soundcheck/internal/common"
	"soundcheck/internal/models"

	"github.com/labstack/echo/v4"
)

// mfaRequiredResponse tells API clients which step of the MFA flow the user
// must complete before retrying.
type mfaRequiredResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RedirectTo string `json:"redirect_to"`
}

// RequireMFA gates dashboard and admin routes. Users without a confirmed
// TOTP setup are pointed at enrollment; users with a setup but an unverified
// session are pointed at verification. Must run after Session.
func RequireMFA() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(common.EchoCurrentUserKey).(*models.User)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			session, ok := c.Get(common.EchoSessionKey).(*caching.SessionData)
			if !ok {
				return common.SendUnauthorizedError(c)
			}

			if !user.MFAConfirmed {
				return c.JSON(http.StatusForbidden, &mfaRequiredResponse{
					Code:       "mfa_setup_required",
					Message:    "Two-factor authentication must be set up before continuing.",
					RedirectTo: "/v1/auth/mfa/setup",
				})
			}
			if !session.MFAVerified {
				return c.JSON(http.StatusForbidden, &mfaRequiredResponse{
					Code:       "mfa_verification_required",
					Message:    "This session has not completed two-factor verification.",
					RedirectTo: "/v1/auth/mfa/verify",
				})
			}

			return next(c)
		}
	}
}

// RequireAdmin restricts a route group to tenant admins. Must run after
// Session.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(common.EchoCurrentUserKey).(*models.User)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if !user.IsTenantAdmin() {
				return common.SendForbiddenError(c, "Administrator role required")
			}
			return next(c)
		}
	}
}
