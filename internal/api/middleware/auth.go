package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDContextKey = "user_id"

// authSkipPaths are operational paths (probes, scrapes, docs) left open.
var authSkipPaths = map[string]struct{}{
	"/healthz":      {},
	"/readyz":       {},
	"/metrics":      {},
	"/docs":         {},
	"/openapi.json": {},
}

// Auth returns Echo middleware that validates a Bearer JWT signed with the
// shared secret and stores the subject claim as the requesting user id.
func Auth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, skip := authSkipPaths[c.Request().URL.Path]; skip {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			userID, err := parseSubject(token, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userIDContextKey, userID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id stored by Auth, or "" when the
// request was not authenticated.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

func parseSubject(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
