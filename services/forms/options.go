package forms

// OptionSet is a fixed list of choices rendered as one checkbox or select group.
// The same set drives the client widget and server-side validation.
type OptionSet struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Options []string `json:"options"`
}

var (
	EarlyAccessRoles = OptionSet{
		Name:    "early_access_roles",
		Label:   "I am a",
		Options: []string{"Student", "Faculty", "Alumni", "Investor"},
	}
	PartnerRoles = OptionSet{
		Name:    "partner_roles",
		Label:   "I am a",
		Options: []string{"Student", "Investor", "Faculty", "Alumni", "Institution / Admin", "Brand / Company", "Other"},
	}
	Features = OptionSet{
		Name:    "features",
		Label:   "Which features interest you?",
		Options: []string{"Campus feed", "Events", "Faculty communication", "Alumni network", "Career opportunities"},
	}
	AreasOfInterest = OptionSet{
		Name:    "areas_of_interest",
		Label:   "Areas of interest",
		Options: []string{"Investment", "Institutional partnership", "Brand collaboration", "Campus rollout", "Mentorship", "Other"},
	}
	Domains = OptionSet{
		Name:    "domains",
		Label:   "Interested domains",
		Options: []string{"Education", "Technology", "Community", "Recruitment", "Branding"},
	}
)

// Groups returns every option set, keyed by name
func Groups() map[string]OptionSet {
	groups := map[string]OptionSet{}
	for _, s := range []OptionSet{EarlyAccessRoles, PartnerRoles, Features, AreasOfInterest, Domains} {
		groups[s.Name] = s
	}
	return groups
}

func (s OptionSet) Contains(option string) bool {
	for _, o := range s.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Toggle flips option in selected and returns the new selection. Unknown options are ignored.
// Selection order follows the option list so repeated toggles are stable.
func (s OptionSet) Toggle(selected []string, option string) []string {
	if !s.Contains(option) {
		return selected
	}

	on := map[string]bool{}
	for _, v := range selected {
		on[v] = true
	}
	on[option] = !on[option]

	out := make([]string, 0, len(on))
	for _, o := range s.Options {
		if on[o] {
			out = append(out, o)
		}
	}
	return out
}
