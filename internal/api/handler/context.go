package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/restaurant-directory/internal/api/middleware"
)

// ctxSessionID returns the session identifier issued by the Session
// middleware, or "" when the route is not behind it.
func ctxSessionID(c echo.Context) string {
	id, _ := c.Get(middleware.ContextKeySessionID).(string)
	return id
}
