// Package echomw provides the Echo middlewares of the preview server.
package echomw

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
)

const (
	// Env var holding the preview API token.
	EnvPreviewBearerToken = "SYNTH_OCR_PREVIEW_TOKEN"

	// Realm for WWW-Authenticate header.
	authRealm = "synth-ocr-preview"
)

func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvPreviewBearerToken))
}

// RequireBearerToken validates Authorization: Bearer <token> against
// expected. On failure responds 401.
func RequireBearerToken(expected string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if expected == "" {
				// Fail closed if not configured.
				return unauthorized(c)
			}

			auth := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			if auth == "" {
				return unauthorized(c)
			}

			// Case-insensitive scheme per RFC; allow extra spaces.
			const bearer = "bearer "
			if len(auth) < len(bearer) || !strings.EqualFold(auth[:len(bearer)], bearer) {
				return unauthorized(c)
			}
			received := strings.TrimSpace(auth[len(bearer):])
			if received == "" {
				return unauthorized(c)
			}

			if subtle.ConstantTimeCompare([]byte(received), []byte(expected)) != 1 {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	LogRouteAccess(c, tl.Info, "Unauthorized access attempt", palette.Yellow)

	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="`+authRealm+`"`)
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "unauthorized",
	})
}
