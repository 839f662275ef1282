package services

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"aftercollage_app_go/config"
	"aftercollage_app_go/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nyaruka/phonenumbers"
	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

//go:embed emails/*
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// loadTemplate renders emails/<name>.html and emails/<name>.txt
func loadTemplate(name string, data interface{}) (htmlBody string, textBody string, err error) {
	htmlTmpl, err := htmltemplate.ParseFS(emailTemplates, "emails/"+name+".html")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.html: %w", name, err)
	}
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.html: %w", name, err)
	}
	htmlBody = buf.String()

	textTmpl, err := texttemplate.ParseFS(emailTemplates, "emails/"+name+".txt")
	if err != nil {
		return "", "", fmt.Errorf("failed to parse template %s.txt: %w", name, err)
	}
	buf.Reset()
	if err := textTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s.txt: %w", name, err)
	}
	return htmlBody, buf.String(), nil
}

// Mailer sends email through Resend, or logs it when EMAIL_TEST_MODE is on
type Mailer struct {
	cfg *config.Config
	log *zap.Logger
}

func NewMailer(cfg *config.Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailer{cfg: cfg, log: log}
}

// Send delivers email synchronously
func (m *Mailer) Send(email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if email.HTMLBody == "" && email.TextBody == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	// In development mode, log the email instead of sending
	if m.cfg.EmailTestMode {
		m.log.Info("email not sent (test mode)",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("text", email.TextBody),
		)
		return nil
	}

	if m.cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(m.cfg.ResendAPIKey)
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.cfg.EmailFromName, m.cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	m.log.Info("email sent", zap.String("resend_id", sent.Id), zap.Strings("to", email.To))
	return nil
}

// NotifySubmission returns an Intake hook that tells the team about a new submission and
// thanks the submitter
func (m *Mailer) NotifySubmission(dashboardURL string) func(models.Submission) {
	return func(sub models.Submission) {
		if m.cfg.TeamNotifyEmail != "" {
			notice, err := BuildSubmissionNoticeEmail(m.cfg.TeamNotifyEmail, sub, dashboardURL)
			if err != nil {
				m.log.Error("failed to build submission notice", zap.Error(err))
			} else if err := m.Send(notice); err != nil {
				m.log.Error("failed to send submission notice", zap.String("id", sub.GetID()), zap.Error(err))
			}
		}

		receipt, err := BuildSubmissionReceiptEmail(sub)
		if err != nil {
			m.log.Error("failed to build submission receipt", zap.Error(err))
			return
		}
		if err := m.Send(receipt); err != nil {
			m.log.Error("failed to send submission receipt", zap.String("id", sub.GetID()), zap.Error(err))
		}
	}
}

// NoticeField is one labelled line of a submission notice
type NoticeField struct {
	Label string
	Value string
}

// SubmissionNoticeEmailData contains data for the submission_notice template
type SubmissionNoticeEmailData struct {
	KindLabel    string
	SubmittedAt  string
	Fields       []NoticeField
	DashboardURL string
}

var kindLabels = map[models.Kind]string{
	models.KindContact:     "contact",
	models.KindEarlyAccess: "early access",
	models.KindPartner:     "partner",
}

// Columns left out of the notice
var noticeSkip = map[string]bool{"id": true, "status": true, "created_at": true}

// BuildSubmissionNoticeEmail creates the team notification for a new submission
func BuildSubmissionNoticeEmail(to string, sub models.Submission, dashboardURL string) (*Email, error) {
	data := SubmissionNoticeEmailData{
		KindLabel:   kindLabels[sub.Kind()],
		SubmittedAt: time.Now().UTC().Format("2006-01-02 15:04 MST"),
	}
	if dashboardURL != "" {
		data.DashboardURL = strings.TrimSuffix(dashboardURL, "/") + "/admin"
	}

	for _, f := range sub.Record() {
		if noticeSkip[f.Key] {
			continue
		}
		value := noticeValue(f.Value)
		if f.Key == "phone" || f.Key == "phone_number" {
			value = FormatPhoneE164(value)
		}
		data.Fields = append(data.Fields, NoticeField{Label: fieldLabel(f.Key), Value: value})
	}

	htmlBody, textBody, err := loadTemplate("submission_notice", data)
	if err != nil {
		return nil, err
	}

	name, _ := submitter(sub)
	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("New %s submission from %s", data.KindLabel, name),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// SubmissionReceiptEmailData contains data for the submission_receipt template
type SubmissionReceiptEmailData struct {
	Name    string
	Message string
}

// BuildSubmissionReceiptEmail creates the thank-you email sent to the submitter
func BuildSubmissionReceiptEmail(sub models.Submission) (*Email, error) {
	name, email := submitter(sub)
	if email == "" {
		return nil, fmt.Errorf("submission %s has no email", sub.GetID())
	}

	data := SubmissionReceiptEmailData{Name: name, Message: SuccessMessage(sub.Kind())}
	htmlBody, textBody, err := loadTemplate("submission_receipt", data)
	if err != nil {
		return nil, err
	}
	return &Email{
		To:       []string{email},
		Subject:  "Thanks for reaching out to AfterCollage",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}

// FormatPhoneE164 formats an Indian number as E.164, returning raw unchanged if it does not parse
func FormatPhoneE164(raw string) string {
	if raw == "" {
		return raw
	}
	num, err := phonenumbers.Parse(raw, "IN")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

var strictPolicy = bluemonday.StrictPolicy()

// stripMarkup removes any tags a visitor typed; templates do the escaping
func stripMarkup(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

func noticeValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case *string:
		if val == nil {
			return ""
		}
		return stripMarkup(*val)
	case string:
		return stripMarkup(val)
	case []string:
		items := make([]string, len(val))
		for i, s := range val {
			items[i] = stripMarkup(s)
		}
		return strings.Join(items, ", ")
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprint(val)
	}
}

// fieldLabel turns "college_organization" into "College organization"
func fieldLabel(key string) string {
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func submitter(sub models.Submission) (name, email string) {
	rec := sub.Record()
	for _, key := range []string{"full_name", "name"} {
		if v, ok := rec.Get(key); ok {
			name = noticeValue(v)
			break
		}
	}
	if v, ok := rec.Get("email"); ok {
		email = noticeValue(v)
	}
	return name, email
}
