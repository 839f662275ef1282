package pages

import (
	"time"

	"aftercollage_app_go/models"
	"aftercollage_app_go/services"
	"aftercollage_app_go/services/forms"
	"aftercollage_app_go/templates/partials"

	"github.com/google/uuid"
)

// FormView is one rendered instance of a lead form. FormID is sent with every submit so
// the server can refuse a second submit while the first is pending.
type FormView struct {
	Kind   models.Kind
	FormID string
	Action string
}

func newFormView(kind models.Kind) FormView {
	return FormView{Kind: kind, FormID: uuid.NewString(), Action: "/api/forms/" + string(kind)}
}

// OptionGroup renders an option set as the inputs named Field
type OptionGroup struct {
	Field string
	forms.OptionSet
}

type LandingView struct {
	Page
	TurnstileSiteKey string

	Contact     FormView
	EarlyAccess FormView
	Partner     FormView

	EarlyAccessRoles  OptionGroup
	PartnerRoles      OptionGroup
	Features          OptionGroup
	AreasOfInterest   OptionGroup
	InterestedDomains OptionGroup
}

func NewLandingView(page Page, turnstileSiteKey string) LandingView {
	return LandingView{
		Page:              page,
		TurnstileSiteKey:  turnstileSiteKey,
		Contact:           newFormView(models.KindContact),
		EarlyAccess:       newFormView(models.KindEarlyAccess),
		Partner:           newFormView(models.KindPartner),
		EarlyAccessRoles:  OptionGroup{Field: "userRole", OptionSet: forms.EarlyAccessRoles},
		PartnerRoles:      OptionGroup{Field: "userRole", OptionSet: forms.PartnerRoles},
		Features:          OptionGroup{Field: "interestedFeatures", OptionSet: forms.Features},
		AreasOfInterest:   OptionGroup{Field: "areasOfInterest", OptionSet: forms.AreasOfInterest},
		InterestedDomains: OptionGroup{Field: "interestedDomains", OptionSet: forms.Domains},
	}
}

type LoginView struct {
	Page
	Email  string
	Error  string
	Notice *services.Notification
}

// SubmissionRow is one table row; Cells line up with the table's Columns
type SubmissionRow struct {
	ID     string
	Status string
	Cells  []string
}

// SubmissionTable is one dashboard tab
type SubmissionTable struct {
	Kind       models.Kind
	Collection string
	Title      string
	Total      int
	Columns    []string
	Rows       []SubmissionRow
	Statuses   []string
}

type DashboardView struct {
	Page
	Email    string
	Search   string
	Status   string
	LoadedAt time.Time
	Notice   *services.Notification

	StatusFilters []string
	Tables        []SubmissionTable
}

var tableTitles = map[models.Kind]string{
	models.KindPartner:     "Partner Requests",
	models.KindContact:     "Contact Messages",
	models.KindEarlyAccess: "Early Access Signups",
}

// Columns shown in the table; status gets its own select
var hiddenColumns = map[string]bool{"id": true, "status": true}

// NewDashboardView builds the tabs from the filtered snapshot. Totals come from all, so the
// stat cards do not change with the filter.
func NewDashboardView(page Page, email string, all, filtered services.Snapshot, search, status string) DashboardView {
	if status == "" {
		status = services.StatusAll
	}
	v := DashboardView{
		Page:          page,
		Email:         email,
		Search:        search,
		Status:        status,
		LoadedAt:      all.LoadedAt,
		StatusFilters: []string{services.StatusAll, models.StatusNew, models.StatusContacted, models.StatusInDiscussion, models.StatusClosed},
	}

	totals := all.Counts()
	for _, kind := range models.Kinds {
		table := SubmissionTable{
			Kind:       kind,
			Collection: kind.Collection(),
			Title:      tableTitles[kind],
			Total:      totals[kind],
			Columns:    tableColumns(kind),
			Statuses:   models.StatusesFor(kind.Collection()),
		}
		for _, rec := range filtered.Records(kind) {
			table.Rows = append(table.Rows, newSubmissionRow(rec))
		}
		v.Tables = append(v.Tables, table)
	}
	return v
}

func tableColumns(kind models.Kind) []string {
	var sample models.Submission
	switch kind {
	case models.KindPartner:
		sample = models.PartnerSubmission{}
	case models.KindContact:
		sample = models.ContactSubmission{}
	default:
		sample = models.EarlyAccessSubmission{}
	}

	var cols []string
	for _, key := range sample.Record().Keys() {
		if !hiddenColumns[key] {
			cols = append(cols, key)
		}
	}
	return cols
}

func newSubmissionRow(rec models.Record) SubmissionRow {
	row := SubmissionRow{}
	for _, f := range rec {
		switch f.Key {
		case "id":
			row.ID, _ = f.Value.(string)
		case "status":
			row.Status, _ = f.Value.(string)
		default:
			row.Cells = append(row.Cells, partials.FormatCell(f.Value))
		}
	}
	return row
}
