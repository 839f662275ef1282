package handlers

import (
	"errors"
	"net/http"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"
	"aftercollage_app_go/templates/pages"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Dashboard renders the three submission tabs. Each page load fetches fresh data.
func (h *Handlers) Dashboard(c echo.Context) error {
	var notice *services.Notification
	if err := h.reviews.Refresh(c.Request().Context()); err != nil {
		n := services.Failure(services.MsgLoadFailed)
		notice = &n
	} else if c.QueryParam("notice") == noticeNoData {
		n := services.Failure(services.MsgNoData)
		notice = &n
	}

	search, status := c.QueryParam("search"), c.QueryParam("status")
	email := ""
	if session := middleware.GetCurrentSession(c); session != nil {
		email = session.Email
	}

	view := pages.NewDashboardView(h.page(c, "Submissions | AfterCollage"), email,
		h.reviews.Snapshot(), h.reviews.Filter(search, status), search, status)
	view.Notice = notice
	return render(c, http.StatusOK, pages.Dashboard(view))
}

// SubmissionsResponse is the JSON view of the dashboard
type SubmissionsResponse struct {
	services.Snapshot
	Counts map[models.Kind]int `json:"counts"`
	Totals map[models.Kind]int `json:"totals"`
}

// ListSubmissions returns the filtered snapshot, loading it first if it never was
func (h *Handlers) ListSubmissions(c echo.Context) error {
	if !h.reviews.Loaded() {
		if err := h.reviews.Refresh(c.Request().Context()); err != nil {
			return notify(c, http.StatusBadGateway, services.Failure(services.MsgLoadFailed))
		}
	}

	filtered := h.reviews.Filter(c.QueryParam("search"), c.QueryParam("status"))
	return c.JSON(http.StatusOK, SubmissionsResponse{
		Snapshot: filtered,
		Counts:   filtered.Counts(),
		Totals:   h.reviews.Snapshot().Counts(),
	})
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

// UpdateStatus handles PUT /admin/api/submissions/:collection/:id/status
func (h *Handlers) UpdateStatus(c echo.Context) error {
	collection, id := c.Param("collection"), c.Param("id")

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return invalidRequest(c)
	}

	if !h.reviews.Loaded() {
		if err := h.reviews.Refresh(c.Request().Context()); err != nil {
			h.log.Warn("could not load previous status", zap.Error(err))
		}
	}
	var oldStatus string
	if kind, ok := models.ParseKind(collection); ok {
		if rec, found := h.reviews.Snapshot().Find(kind, id); found {
			v, _ := rec.Get("status")
			oldStatus, _ = v.(string)
		}
	}

	n, err := h.reviews.UpdateStatus(c.Request().Context(), collection, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownCollection), errors.Is(err, backend.ErrNotFound):
			return notify(c, http.StatusNotFound, n)
		case errors.Is(err, services.ErrInvalidStatus):
			return notify(c, http.StatusBadRequest, n)
		}
		return notify(c, http.StatusInternalServerError, n)
	}

	kind, _ := models.ParseKind(collection)
	h.auditor.LogEvent(c.Request().Context(), middleware.GetAuditContext(c), models.AuditActionUpdate,
		kind.Collection(), id, "Updated status",
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": req.Status},
	)
	h.log.Info("submission status updated",
		zap.String("collection", kind.Collection()),
		zap.String("id", id),
		zap.String("status", req.Status),
	)

	if isHTMX(c) {
		trigger(c, map[string]interface{}{
			EventShowToast:          n,
			EventSubmissionsChanged: map[string]string{"collection": kind.Collection(), "id": id},
		})
		return c.NoContent(http.StatusOK)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notification": n})
}

// Refresh re-fetches every collection
func (h *Handlers) Refresh(c echo.Context) error {
	if err := h.reviews.Refresh(c.Request().Context()); err != nil {
		return notify(c, http.StatusBadGateway, services.Failure(services.MsgLoadFailed))
	}

	if isHTMX(c) {
		trigger(c, map[string]interface{}{EventSubmissionsChanged: map[string]string{}})
		return c.NoContent(http.StatusOK)
	}
	snap := h.reviews.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"counts":    snap.Counts(),
		"loaded_at": snap.LoadedAt,
	})
}

// History returns the audit trail of one submission, newest first
func (h *Handlers) History(c echo.Context) error {
	kind, ok := models.ParseKind(c.Param("collection"))
	if !ok {
		return notify(c, http.StatusNotFound, services.Failure(services.MsgInvalidRequest))
	}

	logs, err := h.auditor.ResourceHistory(c.Request().Context(), kind.Collection(), c.Param("id"))
	if err != nil {
		h.log.Error("audit history lookup failed", zap.Error(err))
		return notify(c, http.StatusInternalServerError, services.Failure(services.MsgLoadFailed))
	}
	entries := make([]historyEntry, len(logs))
	for i := range logs {
		entries[i] = historyEntry{AuditLog: logs[i], Changes: logs[i].Changes()}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": entries})
}

// historyEntry is an audit row with its field changes decoded
type historyEntry struct {
	models.AuditLog
	Changes []models.AuditChange `json:"changes,omitempty"`
}
