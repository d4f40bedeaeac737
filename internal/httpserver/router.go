package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Radhikamangroliya/todo-timeline-api/internal/middleware"
)

type Deps struct {
	AuthHandler     *AuthHTTP
	TimelineHandler *TimelineHTTP
	AuthMW          *middleware.BearerAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/api/auth")
	auth.GET("/google", d.AuthHandler.GoogleLogin)
	auth.GET("/google/callback", d.AuthHandler.GoogleCallback)
	auth.POST("/google/token", d.AuthHandler.GoogleTokenLogin)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.GET("/me", d.AuthHandler.Me, d.AuthMW.RequireAuth)

	timeline := e.Group("/api/timeline", d.AuthMW.RequireAuth)
	timeline.GET("", d.TimelineHandler.GetTimeline)
	timeline.POST("", d.TimelineHandler.CreateEntry)
	timeline.PUT("/:id", d.TimelineHandler.UpdateEntry)
	timeline.DELETE("/:id", d.TimelineHandler.DeleteEntry)
	timeline.GET("/search", d.TimelineHandler.SearchEntries)
}
