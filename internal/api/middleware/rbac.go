package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/restaurant-directory/internal/api/metrics"
	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

// RoleResolver looks up the role names an account currently holds.
// ports.AccountRepository satisfies it.
type RoleResolver interface {
	RoleNames(ctx context.Context, accountID string) ([]string, error)
}

// RBACConfig configures RequireRoles.
type RBACConfig struct {
	// Required lists the role names that grant access; holding any one is enough.
	Required []string
	// DisclosurePath is where denied requests are redirected. The required
	// role names are appended as ?roles=a,b.
	DisclosurePath string
	Logger         zerolog.Logger
}

// DefaultDisclosurePath is the public page explaining which roles are needed.
const DefaultDisclosurePath = "/caution"

// RequireRoles enforces role-based access control. The caller's roles are read
// from resolver on every request, never from the token, so a role change is
// honoured immediately. Anonymous callers and callers whose roles cannot be
// resolved are denied.
func RequireRoles(resolver RoleResolver, cfg RBACConfig) echo.MiddlewareFunc {
	if cfg.DisclosurePath == "" {
		cfg.DisclosurePath = DefaultDisclosurePath
	}
	required := append([]string(nil), cfg.Required...)
	target := disclosureURL(cfg.DisclosurePath, required)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := heldRoles(c, resolver, cfg.Logger)
			if domain.HasAnyRole(held, required) {
				return next(c)
			}

			metrics.RBACDenialsTotal.WithLabelValues(c.Path()).Inc()
			cfg.Logger.Info().
				Str("path", c.Path()).
				Strs("held", held).
				Strs("required", required).
				Msg("access denied")

			return c.Redirect(http.StatusFound, target)
		}
	}
}

// disclosureURL keeps the separating commas literal: /caution?roles=admin,manager.
func disclosureURL(path string, required []string) string {
	escaped := make([]string, len(required))
	for i, r := range required {
		escaped[i] = url.QueryEscape(r)
	}
	return path + "?roles=" + strings.Join(escaped, ",")
}

func heldRoles(c echo.Context, resolver RoleResolver, log zerolog.Logger) []string {
	accountID, _ := c.Get(ContextKeyAccountID).(string)
	if accountID == "" {
		return nil
	}

	held, err := resolver.RoleNames(c.Request().Context(), accountID)
	if err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("role lookup failed")
		return nil
	}
	return held
}
