package handlers

import (
	"aftercollage_app_go/middleware"

	"github.com/labstack/echo/v4"
)

// Register mounts every route on e
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/", h.Landing)
	e.GET("/healthz", h.Health)

	// Landing page forms
	api := e.Group("/api/forms")
	api.GET("/options", h.FormOptions)
	api.POST("/contact", h.SubmitContact, h.formLimiter.Middleware())
	api.POST("/early-access", h.SubmitEarlyAccess, h.formLimiter.Middleware())
	api.POST("/partner", h.SubmitPartner, h.formLimiter.Middleware())

	// Admin sign-in
	e.GET("/admin/login", h.LoginPage)
	e.POST("/admin/login", h.Login, h.loginLimiter.Middleware())
	e.POST("/admin/logout", h.Logout)

	// Every dashboard load re-runs the admin check; API calls reuse the mounted guard
	e.GET("/admin", h.Dashboard, middleware.RequireAdmin(h.guards, true), middleware.AuditContext())

	admin := e.Group("/admin", middleware.RequireAdmin(h.guards, false), middleware.AuditContext())
	admin.GET("/api/submissions", h.ListSubmissions)
	admin.PUT("/api/submissions/:collection/:id/status", h.UpdateStatus)
	admin.GET("/api/submissions/:collection/:id/history", h.History)
	admin.POST("/api/refresh", h.Refresh)
	admin.GET("/export/:collection", h.Export)
	admin.POST("/export/:collection/archive", h.Archive)
	admin.GET("/exports/*", h.DownloadExport)
	admin.DELETE("/exports/*", h.DeleteExport)
}
