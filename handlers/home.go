package handlers

import (
	"net/http"

	"aftercollage_app_go/services/forms"
	"aftercollage_app_go/templates/pages"

	"github.com/labstack/echo/v4"
)

// Landing renders the landing page with fresh form instance ids
func (h *Handlers) Landing(c echo.Context) error {
	view := pages.NewLandingView(h.page(c, "AfterCollage - Your campus, after college"), h.cfg.TurnstileSiteKey)
	return render(c, http.StatusOK, pages.Landing(view))
}

// FormOptions returns the option lists behind the checkbox groups and role selects
func (h *Handlers) FormOptions(c echo.Context) error {
	return c.JSON(http.StatusOK, forms.Groups())
}

// Health reports liveness and whether the dashboard snapshot has been loaded
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"backend":           h.cfg.Backend,
		"submissions_ready": h.reviews.Loaded(),
	})
}
