package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aftercollage_app_go/metrics"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"
	"aftercollage_app_go/templates/partials"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// exportFile is one rendered export
type exportFile struct {
	Kind        models.Kind
	Format      string
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// buildExport renders the filtered rows of :collection in the requested format
func (h *Handlers) buildExport(c echo.Context) (*exportFile, error) {
	kind, ok := models.ParseKind(c.Param("collection"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown collection")
	}

	if !h.reviews.Loaded() {
		if err := h.reviews.Refresh(c.Request().Context()); err != nil {
			return nil, err
		}
	}
	records := h.reviews.Filter(c.QueryParam("search"), c.QueryParam("status")).Records(kind)

	out := &exportFile{Kind: kind, Format: strings.ToLower(c.QueryParam("format")), Rows: len(records)}
	now := h.now()
	var err error
	switch out.Format {
	case "xlsx":
		out.Data, err = services.ExportXLSX(sheetName(kind), records)
		out.ContentType = services.ContentTypeXLSX
	case "", "csv":
		out.Format = "csv"
		out.Data, err = services.ExportCSV(records)
		out.ContentType = services.ContentTypeCSV
	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unsupported format")
	}
	if err != nil {
		return nil, err
	}
	out.Filename = services.ExportFilename(kind.ExportBase(), out.Format, now)
	return out, nil
}

// Export downloads the filtered rows of one collection as CSV or XLSX
func (h *Handlers) Export(c echo.Context) error {
	file, err := h.buildExport(c)
	if err != nil {
		return h.exportFailed(c, err)
	}

	metrics.RecordExport(file.Kind.Collection(), file.Format)
	h.auditor.LogEvent(c.Request().Context(), middleware.GetAuditContext(c), models.AuditActionExport,
		file.Kind.Collection(), "", fmt.Sprintf("Exported %d rows as %s", file.Rows, strings.ToUpper(file.Format)),
		nil, map[string]interface{}{"filename": file.Filename, "rows": file.Rows})

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	return c.Blob(http.StatusOK, file.ContentType, file.Data)
}

// Archive stores a copy of the export in export storage instead of downloading it
func (h *Handlers) Archive(c echo.Context) error {
	if h.storage == nil || !h.storage.IsConfigured() {
		return notify(c, http.StatusServiceUnavailable, services.Failure("Export storage is not configured"))
	}

	file, err := h.buildExport(c)
	if err != nil {
		return h.exportFailed(c, err)
	}

	result, err := services.ArchiveExport(c.Request().Context(), h.storage, file.Kind, file.Filename, file.ContentType, file.Data, h.now())
	if err != nil {
		h.log.Error("export archive failed", zap.String("collection", file.Kind.Collection()), zap.Error(err))
		return notify(c, http.StatusInternalServerError, services.Failure("Failed to archive export"))
	}

	metrics.RecordExport(file.Kind.Collection(), "archive")
	h.auditor.LogEvent(c.Request().Context(), middleware.GetAuditContext(c), models.AuditActionExport,
		file.Kind.Collection(), "", fmt.Sprintf("Archived %d rows as %s", file.Rows, strings.ToUpper(file.Format)),
		nil, map[string]interface{}{"key": result.Key, "rows": file.Rows})

	n := services.Success(fmt.Sprintf("Archived %s (%s)", file.Filename, partials.FormatFileSize(result.FileSize)))
	if isHTMX(c) {
		trigger(c, map[string]interface{}{EventShowToast: n})
		return c.NoContent(http.StatusCreated)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"notification": n,
		"key":          result.Key,
		"url":          h.storage.GetPublicURL(result.Key),
		"size":         result.FileSize,
	})
}

// DownloadExport serves an archived export. R2 objects are handed out as short-lived
// signed URLs; local files are streamed.
func (h *Handlers) DownloadExport(c echo.Context) error {
	key, ok := h.exportKey(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	if _, remote := h.storage.(*services.R2Storage); remote {
		signed, err := h.storage.GetSignedURL(c.Request().Context(), key, 15*time.Minute)
		if err != nil {
			h.log.Error("failed to sign export url", zap.String("key", key), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.Redirect(http.StatusFound, signed)
	}

	reader, contentType, err := h.storage.Get(c.Request().Context(), key)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	defer reader.Close()

	name := key[strings.LastIndex(key, "/")+1:]
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response().Writer, reader)
	return err
}

// DeleteExport removes an archived export
func (h *Handlers) DeleteExport(c echo.Context) error {
	key, ok := h.exportKey(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	if err := h.storage.Delete(c.Request().Context(), key); err != nil {
		h.log.Error("export delete failed", zap.String("key", key), zap.Error(err))
		return notify(c, http.StatusInternalServerError, services.Failure("Failed to delete export"))
	}

	h.auditor.LogEvent(c.Request().Context(), middleware.GetAuditContext(c), models.AuditActionDelete,
		"exports", key, "Deleted archived export", map[string]interface{}{"key": key}, nil)

	n := services.Success("Export deleted")
	if isHTMX(c) {
		trigger(c, map[string]interface{}{EventShowToast: n})
		return c.NoContent(http.StatusOK)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notification": n})
}

// exportKey reads the archived export key from the path. Only keys under exports/ are served.
func (h *Handlers) exportKey(c echo.Context) (string, bool) {
	if h.storage == nil || !h.storage.IsConfigured() {
		return "", false
	}
	key, err := url.PathUnescape(c.Param("*"))
	if err != nil || key == "" || !strings.HasPrefix(key, "exports/") || strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}

// exportFailed reports an export that could not be built. Browsers following an export
// link are sent back to the dashboard with a notice.
func (h *Handlers) exportFailed(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	if errors.Is(err, services.ErrNoData) {
		if isHTMX(c) || strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
			return notify(c, http.StatusBadRequest, services.Failure(services.MsgNoData))
		}
		q := url.Values{}
		if s := c.QueryParam("search"); s != "" {
			q.Set("search", s)
		}
		if s := c.QueryParam("status"); s != "" {
			q.Set("status", s)
		}
		q.Set("notice", noticeNoData)
		return c.Redirect(http.StatusSeeOther, "/admin?"+q.Encode())
	}

	h.log.Error("export failed", zap.String("collection", c.Param("collection")), zap.Error(err))
	return notify(c, http.StatusInternalServerError, services.Failure("Export failed"))
}

func sheetName(kind models.Kind) string {
	switch kind {
	case models.KindPartner:
		return "Partners"
	case models.KindContact:
		return "Contacts"
	default:
		return "Early Access"
	}
}
