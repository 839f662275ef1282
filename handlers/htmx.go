package handlers

import (
	"encoding/json"
	"net/http"

	"aftercollage_app_go/services"

	"github.com/labstack/echo/v4"
)

// Client-side events sent through HX-Trigger
const (
	EventShowToast          = "show-toast"
	EventResetForm          = "reset-form"
	EventCloseModal         = "close-modal"
	EventSubmissionsChanged = "submissions-changed"
)

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// trigger sets HX-Trigger so htmx raises each event with its detail
func trigger(c echo.Context, events map[string]interface{}) {
	b, err := json.Marshal(events)
	if err != nil {
		return
	}
	c.Response().Header().Set("HX-Trigger", string(b))
}

// notify answers with a toast: an HX-Trigger for htmx on success, JSON otherwise.
// htmx does not swap error responses, so failures always carry the notification in the body.
func notify(c echo.Context, status int, n services.Notification) error {
	if isHTMX(c) && status < http.StatusBadRequest {
		trigger(c, map[string]interface{}{EventShowToast: n})
		return c.NoContent(status)
	}
	return c.JSON(status, map[string]interface{}{"notification": n})
}
