package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"aftercollage_app_go/metrics"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"
	"aftercollage_app_go/services/forms"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// FormMeta rides along with every form body
type FormMeta struct {
	FormID         string `json:"formId" form:"form_id"`
	TurnstileToken string `json:"turnstileToken" form:"cf-turnstile-response"`
}

type contactRequest struct {
	forms.ContactInput
	FormMeta
}

type earlyAccessRequest struct {
	forms.EarlyAccessInput
	FormMeta
}

type partnerRequest struct {
	forms.PartnerInput
	FormMeta
}

// SubmitResponse is the body of an accepted submit
type SubmitResponse struct {
	ID           string                `json:"id"`
	Notification services.Notification `json:"notification"`
	ResetForm    bool                  `json:"resetForm"`
	CloseDialog  bool                  `json:"closeDialog"`
}

// SubmitContact handles POST /api/forms/contact
func (h *Handlers) SubmitContact(c echo.Context) error {
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return bindFailed(c, models.KindContact, err)
	}
	return h.submit(c, models.KindContact, req.FormMeta, func() (models.Submission, forms.Errors) {
		sub, errs := forms.ValidateContact(req.ContactInput)
		if errs != nil {
			return nil, errs
		}
		return sub, nil
	})
}

// SubmitEarlyAccess handles POST /api/forms/early-access
func (h *Handlers) SubmitEarlyAccess(c echo.Context) error {
	var req earlyAccessRequest
	if err := c.Bind(&req); err != nil {
		return bindFailed(c, models.KindEarlyAccess, err)
	}
	return h.submit(c, models.KindEarlyAccess, req.FormMeta, func() (models.Submission, forms.Errors) {
		sub, errs := forms.ValidateEarlyAccess(req.EarlyAccessInput)
		if errs != nil {
			return nil, errs
		}
		return sub, nil
	})
}

// SubmitPartner handles POST /api/forms/partner
func (h *Handlers) SubmitPartner(c echo.Context) error {
	var req partnerRequest
	if err := c.Bind(&req); err != nil {
		return bindFailed(c, models.KindPartner, err)
	}
	return h.submit(c, models.KindPartner, req.FormMeta, func() (models.Submission, forms.Errors) {
		sub, errs := forms.ValidatePartner(req.PartnerInput)
		if errs != nil {
			return nil, errs
		}
		return sub, nil
	})
}

// submit validates first so invalid input never reaches Turnstile or the store
func (h *Handlers) submit(c echo.Context, kind models.Kind, meta FormMeta, validate func() (models.Submission, forms.Errors)) error {
	sub, errs := validate()
	if errs != nil {
		metrics.RecordSubmission(string(kind), "invalid")
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{"errors": errs})
	}

	if !h.verifyTurnstile(c, meta.TurnstileToken) {
		metrics.RecordSubmission(string(kind), "unverified")
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"notification": services.Failure(services.MsgVerificationFailed),
		})
	}

	formID := c.Request().Header.Get("X-Form-ID")
	if formID == "" {
		formID = meta.FormID
	}

	result := h.intake.Submit(c.Request().Context(), formID, sub)
	switch result.Outcome {
	case services.OutcomeBusy:
		return c.JSON(http.StatusConflict, map[string]interface{}{"notification": result.Notification})
	case services.OutcomeFailed:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{"notification": result.Notification})
	}

	if isHTMX(c) {
		trigger(c, map[string]interface{}{
			EventShowToast:  result.Notification,
			EventResetForm:  map[string]string{"formId": formID},
			EventCloseModal: map[string]string{"kind": string(kind)},
		})
	}
	return c.JSON(http.StatusCreated, SubmitResponse{
		ID:           result.ID,
		Notification: result.Notification,
		ResetForm:    result.ResetForm,
		CloseDialog:  result.CloseDialog,
	})
}

// verifyTurnstile passes everything when no secret is configured
func (h *Handlers) verifyTurnstile(c echo.Context, token string) bool {
	if h.cfg.TurnstileSecretKey == "" {
		return true
	}
	ok, err := services.VerifyTurnstileToken(c.Request().Context(), token, h.cfg.TurnstileSecretKey, c.RealIP())
	if err != nil {
		h.log.Warn("turnstile verification failed", zap.Error(err))
		return false
	}
	return ok
}

// bindFailed answers a body that could not be decoded. A wrongly typed field is reported
// against that field like any other validation error.
func bindFailed(c echo.Context, kind models.Kind, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		metrics.RecordSubmission(string(kind), "invalid")
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{"errors": forms.TypeMismatch(typeErr.Field)})
	}
	return invalidRequest(c)
}

func invalidRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"notification": services.Failure(services.MsgInvalidRequest),
	})
}
