// Package pages renders the server-side HTML shells: the landing page forms, the admin
// login and the submissions dashboard.
package pages

import (
	"embed"
	"html/template"
	"time"

	"aftercollage_app_go/templates/components"
	"aftercollage_app_go/templates/partials"

	"github.com/a-h/templ"
)

//go:embed html/*.html
var files embed.FS

var tmpl = template.Must(template.New("pages").Funcs(template.FuncMap{
	"json":         components.JSON,
	"columnTitle":  partials.ColumnTitle,
	"statusLabel":  partials.StatusLabel,
	"relativeTime": relativeTime,
}).ParseFS(files, "html/*.html"))

func relativeTime(t time.Time) string {
	return partials.FormatRelativeTime(t, time.Now())
}

// Page carries what every shell needs
type Page struct {
	Title     string
	Nonce     string
	CSRFToken string
	Asset     func(file string) string
}

// AssetURL returns the cache-busted path of a static file
func (p Page) AssetURL(file string) string {
	if p.Asset == nil {
		return "/static/" + file
	}
	return p.Asset(file)
}

func Landing(v LandingView) templ.Component {
	return templ.FromGoHTML(tmpl.Lookup("landing"), v)
}

func Login(v LoginView) templ.Component {
	return templ.FromGoHTML(tmpl.Lookup("login"), v)
}

func Dashboard(v DashboardView) templ.Component {
	return templ.FromGoHTML(tmpl.Lookup("dashboard"), v)
}
