package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"aftercollage_app_go/config"
	"aftercollage_app_go/models"
	"aftercollage_app_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitContact(t *testing.T) {
	t.Run("valid JSON is stored", func(t *testing.T) {
		app := setupApp(t)
		body := `{"name":"Asha Rao","email":"asha@example.com","message":"I would love a campus demo"}`

		rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(body), asJSON)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp SubmitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.True(t, resp.ResetForm)
		assert.True(t, resp.CloseDialog)
		assert.Equal(t, services.SuccessMessage(models.KindContact), resp.Notification.Message)

		var stored models.ContactSubmission
		require.NoError(t, app.db.First(&stored, "id = ?", resp.ID).Error)
		assert.Equal(t, "Asha Rao", stored.Name)
		assert.Equal(t, models.StatusNew, stored.Status)
		assert.Nil(t, stored.Phone)
	})

	t.Run("invalid input is rejected before storing", func(t *testing.T) {
		app := setupApp(t)
		body := `{"name":"A","email":"not-an-email","message":"short"}`

		rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(body), asJSON)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors, "name")
		assert.Contains(t, resp.Errors, "email")
		assert.Contains(t, resp.Errors, "message")

		var count int64
		app.db.Model(&models.ContactSubmission{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("htmx form post triggers client events", func(t *testing.T) {
		app := setupApp(t)
		form := url.Values{
			"name":    {"Asha Rao"},
			"email":   {"asha@example.com"},
			"phone":   {"9876543210"},
			"message": {"I would love a campus demo"},
			"form_id": {"form-1"},
		}

		rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(form.Encode()), asForm, asHTMX)
		require.Equal(t, http.StatusCreated, rec.Code)

		var events map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &events))
		assert.Contains(t, events, EventShowToast)
		assert.Contains(t, events, EventCloseModal)
		assert.JSONEq(t, `{"formId":"form-1"}`, string(events[EventResetForm]))
	})
}

func TestSubmitEarlyAccess(t *testing.T) {
	app := setupApp(t)
	form := url.Values{
		"fullName":           {"Rahul Verma"},
		"email":              {"rahul@example.com"},
		"phoneNumber":        {"+91 9876543210"},
		"userRole":           {"Student"},
		"interestedFeatures": {"Events", "Campus feed"},
		"consent":            {"true"},
	}

	rec := app.do(http.MethodPost, "/api/forms/early-access", strings.NewReader(form.Encode()), asForm)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored models.EarlyAccessSubmission
	require.NoError(t, app.db.First(&stored).Error)
	assert.Equal(t, []string{"Events", "Campus feed"}, []string(stored.InterestedFeatures))
	assert.True(t, stored.Consent)
}

func TestSubmitPartnerRejectsUnknownOptions(t *testing.T) {
	app := setupApp(t)
	body := `{"fullName":"Neha Kapoor","phoneNumber":"9876543210","email":"neha@fund.in","userRole":"Investor",` +
		`"areasOfInterest":["Space travel"],"interestedDomains":["Education"],"consent":true}`

	rec := app.do(http.MethodPost, "/api/forms/partner", strings.NewReader(body), asJSON)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "areasOfInterest")
}

func TestSubmitWhileInFlight(t *testing.T) {
	app := setupApp(t)
	_, acquired, err := app.inflight.Acquire(context.Background(), string(models.KindContact)+":form-7")
	require.NoError(t, err)
	require.True(t, acquired)

	body := `{"name":"Asha Rao","email":"asha@example.com","message":"I would love a campus demo"}`
	rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(body), asJSON, withHeader("X-Form-ID", "form-7"))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), services.MsgSubmitBusy)

	var count int64
	app.db.Model(&models.ContactSubmission{}).Count(&count)
	assert.Zero(t, count)
}

func TestSubmitRequiresTurnstileWhenConfigured(t *testing.T) {
	app := setupApp(t, func(cfg *config.Config) { cfg.TurnstileSecretKey = "secret" })

	body := `{"name":"Asha Rao","email":"asha@example.com","message":"I would love a campus demo"}`
	rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(body), asJSON)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), services.MsgVerificationFailed)
}

func TestSubmitMalformedBody(t *testing.T) {
	app := setupApp(t)
	rec := app.do(http.MethodPost, "/api/forms/contact", strings.NewReader(`{"name":`), asJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), services.MsgInvalidRequest)
}

func TestSubmitWronglyTypedField(t *testing.T) {
	app := setupApp(t)

	t.Run("consent as text", func(t *testing.T) {
		body := `{"fullName":"Rahul Verma","email":"rahul@example.com","phoneNumber":"9876543210",` +
			`"userRole":"Student","interestedFeatures":["AI Tools"],"consent":"yes"}`
		rec := app.do(http.MethodPost, "/api/forms/early-access", strings.NewReader(body), asJSON)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, map[string]string{"consent": "You must agree to the terms"}, resp.Errors)
	})

	t.Run("single option instead of a list", func(t *testing.T) {
		body := `{"fullName":"Neha Kapoor","phoneNumber":"9123456780","email":"neha@fund.in","userRole":"Investor",` +
			`"areasOfInterest":["Investment"],"interestedDomains":"Education","consent":true}`
		rec := app.do(http.MethodPost, "/api/forms/partner", strings.NewReader(body), asJSON)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"interestedDomains"`)
	})

	var count int64
	app.db.Model(&models.PartnerSubmission{}).Count(&count)
	assert.Zero(t, count)
}

func TestFormOptions(t *testing.T) {
	app := setupApp(t)
	rec := app.do(http.MethodGet, "/api/forms/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"partner_roles"`)
}
