package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const ctxClient = "client"

// ClientFromCtx returns the client id set by APIKeyMiddleware.
func ClientFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxClient).(string)
	return id, ok && id != ""
}

// clientID names a key without exposing it in logs or Redis keys.
func clientID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

// APIKeyMiddleware authenticates requests using the X-API-Key header against
// the configured keys. With no keys configured every request passes as the
// "anonymous" client.
func APIKeyMiddleware(keys []string) echo.MiddlewareFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(allowed) == 0 {
				c.Set(ctxClient, "anonymous")
				return next(c)
			}
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			for _, a := range allowed {
				if subtle.ConstantTimeCompare(a, []byte(key)) == 1 {
					c.Set(ctxClient, clientID(key))
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
		}
	}
}
