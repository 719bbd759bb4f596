package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var errNoClaims = errors.New("rbac: no authenticated claims in context")

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := Claims(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenRequired).SetInternal(errNoClaims)
			}
			if _, ok := allowed[claims.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}
