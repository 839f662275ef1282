package services

import (
	"testing"

	"aftercollage_app_go/config"
	"aftercollage_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestLoadTemplate(t *testing.T) {
	t.Run("renders both bodies", func(t *testing.T) {
		html, text, err := loadTemplate("submission_receipt", SubmissionReceiptEmailData{Name: "Asha", Message: "Thanks"})
		require.NoError(t, err)
		assert.Contains(t, html, "Hi Asha,")
		assert.Contains(t, text, "Hi Asha,")
		assert.Contains(t, text, "Thanks")
	})

	t.Run("template not found", func(t *testing.T) {
		_, _, err := loadTemplate("non_existent", nil)
		assert.Error(t, err)
	})
}

func TestBuildSubmissionNoticeEmail(t *testing.T) {
	org := "<b>Acme</b> & Sons"
	sub := &models.PartnerSubmission{
		ID:                "p1",
		FullName:          "Neha Kapoor",
		PhoneNumber:       "98765 43210",
		Email:             "neha@fund.in",
		UserRole:          "Investor",
		OrganizationName:  &org,
		AreasOfInterest:   datatypes.JSONSlice[string]{"Investment", "Mentorship"},
		InterestedDomains: datatypes.JSONSlice[string]{"Education"},
		Consent:           true,
	}

	email, err := BuildSubmissionNoticeEmail("team@aftercollage.in", sub, "https://aftercollage.in/")
	require.NoError(t, err)

	assert.Equal(t, []string{"team@aftercollage.in"}, email.To)
	assert.Equal(t, "New partner submission from Neha Kapoor", email.Subject)

	assert.Contains(t, email.TextBody, "Full name: Neha Kapoor")
	assert.Contains(t, email.TextBody, "Phone number: +919876543210")
	assert.Contains(t, email.TextBody, "Areas of interest: Investment, Mentorship")
	assert.Contains(t, email.TextBody, "Organization name: Acme & Sons")
	assert.Contains(t, email.TextBody, "Consent: Yes")
	assert.Contains(t, email.TextBody, "Dashboard: https://aftercollage.in/admin")
	assert.NotContains(t, email.TextBody, "p1")

	// Visitor markup is stripped and the rest escaped
	assert.NotContains(t, email.HTMLBody, "<b>Acme</b>")
	assert.Contains(t, email.HTMLBody, "Acme &amp; Sons")
}

func TestBuildSubmissionReceiptEmail(t *testing.T) {
	sub := &models.EarlyAccessSubmission{FullName: "Rahul Verma", Email: "rahul@example.com"}

	email, err := BuildSubmissionReceiptEmail(sub)
	require.NoError(t, err)
	assert.Equal(t, []string{"rahul@example.com"}, email.To)
	assert.Contains(t, email.TextBody, SuccessMessage(models.KindEarlyAccess))

	_, err = BuildSubmissionReceiptEmail(&models.ContactSubmission{Name: "No Email"})
	assert.Error(t, err)
}

func TestFormatPhoneE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"+91 9876543210", "+919876543210"},
		{"+91-9876543210", "+919876543210"},
		{"", ""},
		{"12345", "12345"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPhoneE164(tt.in))
		})
	}
}

func TestMailerSend(t *testing.T) {
	email := &Email{To: []string{"test@example.com"}, Subject: "Test", HTMLBody: "Body"}

	t.Run("test mode logs instead of sending", func(t *testing.T) {
		m := NewMailer(&config.Config{EmailTestMode: true}, nil)
		assert.NoError(t, m.Send(email))
	})

	t.Run("missing api key", func(t *testing.T) {
		m := NewMailer(&config.Config{}, nil)
		err := m.Send(email)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RESEND_API_KEY not configured")
	})

	t.Run("no body", func(t *testing.T) {
		m := NewMailer(&config.Config{ResendAPIKey: "key"}, nil)
		err := m.Send(&Email{To: []string{"test@example.com"}, Subject: "Test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email must have either HTMLBody or TextBody")
	})

	t.Run("no recipients", func(t *testing.T) {
		m := NewMailer(&config.Config{EmailTestMode: true}, nil)
		assert.Error(t, m.Send(&Email{Subject: "Test", TextBody: "x"}))
	})
}

func TestNotifySubmissionHook(t *testing.T) {
	m := NewMailer(&config.Config{EmailTestMode: true, TeamNotifyEmail: "team@aftercollage.in"}, nil)
	hook := m.NotifySubmission("https://aftercollage.in")
	// Test mode never fails, so the hook just has to run through
	hook(&models.ContactSubmission{ID: "c1", Name: "Asha", Email: "asha@example.com", Message: "Hello there"})
}
