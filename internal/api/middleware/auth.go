package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

// ClaimsKey is the echo context key holding the verified *domain.Claims.
const ClaimsKey = "claims"

const (
	msgTokenRequired = "Access token required"
	msgTokenInvalid  = "Invalid or expired token"
)

// Auth verifies the bearer token of every request and injects its claims into
// the context. A missing or malformed header is rejected with 401; a token that
// fails verification or has been revoked is rejected with 403. revoked may be
// nil, in which case no denylist is consulted.
func Auth(tokens ports.TokenIssuer, revoked ports.RevocationStore, log zerolog.Logger) echo.MiddlewareFunc {
	return gate(tokens, revoked, log, false)
}

// OptionalAuth lets requests without an Authorization header through with no
// claims. A request that does send one is checked exactly like Auth.
func OptionalAuth(tokens ports.TokenIssuer, revoked ports.RevocationStore, log zerolog.Logger) echo.MiddlewareFunc {
	return gate(tokens, revoked, log, true)
}

func gate(tokens ports.TokenIssuer, revoked ports.RevocationStore, log zerolog.Logger, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if optional && strings.TrimSpace(header) == "" {
				return next(c)
			}

			raw, ok := bearerToken(header)
			if !ok {
				metrics.TokenChecksTotal.WithLabelValues("missing").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenRequired)
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				metrics.TokenChecksTotal.WithLabelValues("invalid").Inc()
				log.Debug().Err(err).Str("path", c.Path()).Msg("token rejected")
				return echo.NewHTTPError(http.StatusForbidden, msgTokenInvalid)
			}

			if revoked != nil {
				denied, err := revoked.IsRevoked(c.Request().Context(), claims.TokenID)
				if err != nil {
					return fmt.Errorf("auth gate: %w", err)
				}
				if denied {
					metrics.TokenChecksTotal.WithLabelValues("revoked").Inc()
					return echo.NewHTTPError(http.StatusForbidden, msgTokenInvalid)
				}
			}

			metrics.TokenChecksTotal.WithLabelValues("valid").Inc()
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer <token>" value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Claims returns the claims injected by Auth.
func Claims(c echo.Context) (*domain.Claims, error) {
	claims, ok := c.Get(ClaimsKey).(*domain.Claims)
	if !ok || claims == nil {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}
