package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// Middleware returns an Echo middleware that requires a valid bearer token
// and stores the caller's user id on the context. Rejections use the same
// {"error":{"code","message"}} envelope as the API handlers.
func (ts *TokenService) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return unauthorized(c, "MISSING_TOKEN", "missing authorization header")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				return unauthorized(c, "INVALID_TOKEN", "invalid authorization format")
			}

			claims, err := ts.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				return unauthorized(c, "INVALID_TOKEN", "invalid or expired token")
			}

			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

// GetUserID returns the user id stored by Middleware. It panics on routes
// that are not behind it.
func GetUserID(c echo.Context) int64 {
	return c.Get(userIDKey).(int64)
}

// LookupUserID reports the authenticated user id, if any.
func LookupUserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(userIDKey).(int64)
	return id, ok
}

// SetUserID stores an authenticated user id, for handlers authenticated by
// other means and for tests.
func SetUserID(c echo.Context, userID int64) {
	c.Set(userIDKey, userID)
}

func unauthorized(c echo.Context, code, message string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
