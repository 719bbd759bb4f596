package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/roadwatch/damage-portal/internal/api/middleware"
	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// ctxClaims returns the verified claims injected by the Auth middleware.
// A missing value means the route was registered without the gate.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	return middleware.Claims(c)
}
