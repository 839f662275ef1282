// Package forms holds the input rules for the three lead-capture forms. Validation is a
// pure function of its input: it returns either a normalized row or field errors.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"aftercollage_app_go/models"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

// Indian mobile number, optionally prefixed with +91 and a space or dash
var phonePattern = regexp.MustCompile(`^(\+91[\-\s]?)?[6-9]\d{9}$`)

const (
	msgPhone   = "Please enter a valid Indian phone number"
	msgEmail   = "Please enter a valid email address"
	msgRole    = "Please select your role"
	msgConsent = "You must agree to the terms"
)

var messages = map[string]map[string]string{
	"name":                {"min": "Name must be at least 2 characters", "max": "Name must be less than 100 characters"},
	"fullName":            {"min": "Name must be at least 2 characters", "max": "Name must be less than 100 characters"},
	"email":               {"email": msgEmail, "max": "Email must be less than 255 characters"},
	"phone":               {"inphone": msgPhone},
	"phoneNumber":         {"inphone": msgPhone},
	"userRole":            {"required": msgRole, "earlyrole": msgRole, "partnerrole": msgRole},
	"collegeOrganization": {"max": "College / organization must be less than 200 characters"},
	"organizationName":    {"max": "Organization name must be less than 200 characters"},
	"city":                {"max": "City must be less than 100 characters"},
	"reason":              {"max": "Reason must be less than 1000 characters"},
	"message":             {"min": "Message must be at least 10 characters", "max": "Message must be less than 2000 characters"},
	"interestedFeatures":  {"min": "Please select at least one feature", "feature": "Please choose features from the list"},
	"areasOfInterest":     {"min": "Please select at least one area of interest", "area": "Please choose areas from the list"},
	"interestedDomains":   {"min": "Please select at least one domain", "domain": "Please choose domains from the list"},
	"consent":             {"accepted": msgConsent},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	must(v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	}))

	for tag, set := range map[string]OptionSet{
		"earlyrole":   EarlyAccessRoles,
		"partnerrole": PartnerRoles,
		"feature":     Features,
		"area":        AreasOfInterest,
		"domain":      Domains,
	} {
		must(v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return set.Contains(fl.Field().String())
		}))
	}
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Errors maps a field's wire name to its first failing rule's message
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return strings.Join(parts, "; ")
}

type ContactInput struct {
	Name    string `json:"name" form:"name" validate:"min=2,max=100"`
	Email   string `json:"email" form:"email" validate:"email,max=255"`
	Phone   string `json:"phone" form:"phone" validate:"omitempty,inphone"`
	Message string `json:"message" form:"message" validate:"min=10,max=2000"`
}

type EarlyAccessInput struct {
	FullName            string   `json:"fullName" form:"fullName" validate:"min=2,max=100"`
	Email               string   `json:"email" form:"email" validate:"email,max=255"`
	PhoneNumber         string   `json:"phoneNumber" form:"phoneNumber" validate:"inphone"`
	UserRole            string   `json:"userRole" form:"userRole" validate:"required,earlyrole"`
	CollegeOrganization string   `json:"collegeOrganization" form:"collegeOrganization" validate:"max=200"`
	City                string   `json:"city" form:"city" validate:"max=100"`
	Reason              string   `json:"reason" form:"reason" validate:"max=1000"`
	InterestedFeatures  []string `json:"interestedFeatures" form:"interestedFeatures" validate:"min=1,dive,feature"`
	Consent             bool     `json:"consent" form:"consent" validate:"accepted"`
}

type PartnerInput struct {
	FullName          string   `json:"fullName" form:"fullName" validate:"min=2,max=100"`
	PhoneNumber       string   `json:"phoneNumber" form:"phoneNumber" validate:"inphone"`
	Email             string   `json:"email" form:"email" validate:"email,max=255"`
	UserRole          string   `json:"userRole" form:"userRole" validate:"required,partnerrole"`
	OrganizationName  string   `json:"organizationName" form:"organizationName" validate:"max=200"`
	AreasOfInterest   []string `json:"areasOfInterest" form:"areasOfInterest" validate:"min=1,dive,area"`
	InterestedDomains []string `json:"interestedDomains" form:"interestedDomains" validate:"min=1,dive,domain"`
	Message           string   `json:"message" form:"message" validate:"max=2000"`
	Consent           bool     `json:"consent" form:"consent" validate:"accepted"`
}

// ValidateContact returns a ready-to-insert row or the field errors, never both
func ValidateContact(in ContactInput) (*models.ContactSubmission, Errors) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Message = strings.TrimSpace(in.Message)

	if errs := check(in); errs != nil {
		return nil, errs
	}
	return &models.ContactSubmission{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   optional(in.Phone),
		Message: in.Message,
		Status:  models.StatusNew,
	}, nil
}

// ValidateEarlyAccess returns a ready-to-insert row or the field errors, never both
func ValidateEarlyAccess(in EarlyAccessInput) (*models.EarlyAccessSubmission, Errors) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.UserRole = strings.TrimSpace(in.UserRole)
	in.CollegeOrganization = strings.TrimSpace(in.CollegeOrganization)
	in.City = strings.TrimSpace(in.City)
	in.Reason = strings.TrimSpace(in.Reason)

	if errs := check(in); errs != nil {
		return nil, errs
	}
	return &models.EarlyAccessSubmission{
		FullName:            in.FullName,
		Email:               in.Email,
		PhoneNumber:         in.PhoneNumber,
		UserRole:            in.UserRole,
		CollegeOrganization: optional(in.CollegeOrganization),
		City:                optional(in.City),
		Reason:              optional(in.Reason),
		InterestedFeatures:  datatypes.JSONSlice[string](in.InterestedFeatures),
		Consent:             in.Consent,
		Status:              models.StatusNew,
	}, nil
}

// ValidatePartner returns a ready-to-insert row or the field errors, never both
func ValidatePartner(in PartnerInput) (*models.PartnerSubmission, Errors) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Email = strings.TrimSpace(in.Email)
	in.UserRole = strings.TrimSpace(in.UserRole)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	in.Message = strings.TrimSpace(in.Message)

	if errs := check(in); errs != nil {
		return nil, errs
	}
	return &models.PartnerSubmission{
		FullName:          in.FullName,
		PhoneNumber:       in.PhoneNumber,
		Email:             in.Email,
		UserRole:          in.UserRole,
		OrganizationName:  optional(in.OrganizationName),
		AreasOfInterest:   datatypes.JSONSlice[string](in.AreasOfInterest),
		InterestedDomains: datatypes.JSONSlice[string](in.InterestedDomains),
		Message:           optional(in.Message),
		Consent:           in.Consent,
		Status:            models.StatusNew,
	}, nil
}

// ValidPhone reports whether s is an accepted Indian phone number
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

func check(in interface{}) Errors {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{"form": err.Error()}
	}

	out := Errors{}
	for _, fe := range verrs {
		field := fe.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag())
	}
	return out
}

// mismatchRules names the rule a field breaks when its value has the wrong type
var mismatchRules = map[string]string{
	"userRole":           "required",
	"interestedFeatures": "feature",
	"areasOfInterest":    "area",
	"interestedDomains":  "domain",
	"consent":            "accepted",
}

// TypeMismatch reports field, given by its wire name or a dotted path ending in it, as
// carrying a value of the wrong type (a string for a list, text for consent)
func TypeMismatch(field string) Errors {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return Errors{field: message(field, mismatchRules[field])}
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return "Invalid value"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
