package common

import (
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxUserAgentLength = 500

// ClientIP returns the originating client address, honoring X-Forwarded-For
// set by the proxy in front of the service.
func ClientIP(c echo.Context) string {
	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}

// UserAgent returns the raw user agent header, truncated for storage.
func UserAgent(c echo.Context) string {
	ua := c.Request().Header.Get("User-Agent")
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return ua
}

// RequestHost returns the lowercased hostname without port.
func RequestHost(c echo.Context) string {
	host := c.Request().Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

// ParseIntParam parses an integer query parameter with a default; the value
// is clamped to [minimum, maximum] when maximum > 0.
func ParseIntParam(value string, fallback, minimum, maximum int) int {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if v < minimum {
		v = minimum
	}
	if maximum > 0 && v > maximum {
		v = maximum
	}
	return v
}

// ParseOptionalUUID parses an optional UUID query parameter. Empty input
// yields (nil, true); malformed input yields (nil, false).
func ParseOptionalUUID(value string) (*uuid.UUID, bool) {
	if strings.TrimSpace(value) == "" {
		return nil, true
	}
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil, false
	}
	return &id, true
}

// ParseOptionalBool parses "true"/"false" into a tri-state bool.
func ParseOptionalBool(value string) *bool {
	switch value {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
