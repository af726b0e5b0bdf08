package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	// CookieName defaults to DefaultSessionCookie.
	CookieName string
	// MaxAge is the cookie lifetime; zero makes it a browser-session cookie.
	MaxAge time.Duration
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// DefaultSessionCookie names the cookie carrying the session identifier.
const DefaultSessionCookie = "directory_session"

// Session gives every caller an opaque session identifier. An existing cookie
// holding a valid UUID is reused, and re-sent with a fresh MaxAge when one is
// configured; otherwise a new UUID v4 is issued. The
// identifier is stored in the context under ContextKeySessionID.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				if parsed, err := uuid.Parse(ck.Value); err == nil {
					id = parsed.String()
				}
			}

			switch {
			case id == "":
				id = uuid.NewString()
				c.SetCookie(sessionCookie(cfg, id))
			case cfg.MaxAge > 0:
				// sliding expiry, matching the filter TTL refreshed on write
				c.SetCookie(sessionCookie(cfg, id))
			}
			c.Set(ContextKeySessionID, id)

			return next(c)
		}
	}
}

func sessionCookie(cfg SessionConfig, id string) *http.Cookie {
	ck := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.MaxAge > 0 {
		ck.MaxAge = int(cfg.MaxAge.Seconds())
	}
	return ck
}
