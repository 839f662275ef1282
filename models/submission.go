package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Collection (table) names
const (
	TableContactSubmissions     = "contact_submissions"
	TableEarlyAccessSubmissions = "early_access_submissions"
	TablePartnerSubmissions     = "partner_submissions"
	TableUserRoles              = "user_roles"
)

// Review status
const (
	StatusNew          = "new"
	StatusContacted    = "contacted"
	StatusInDiscussion = "in discussion"
	StatusClosed       = "closed"
)

// Kind identifies one of the three submission shapes
type Kind string

const (
	KindContact     Kind = "contact"
	KindEarlyAccess Kind = "early-access"
	KindPartner     Kind = "partner"
)

// Kinds lists every submission kind in dashboard order
var Kinds = []Kind{KindPartner, KindContact, KindEarlyAccess}

// Collection returns the table that stores this kind
func (k Kind) Collection() string {
	switch k {
	case KindContact:
		return TableContactSubmissions
	case KindEarlyAccess:
		return TableEarlyAccessSubmissions
	case KindPartner:
		return TablePartnerSubmissions
	}
	return ""
}

// ExportBase is the file name prefix used for exports of this kind
func (k Kind) ExportBase() string {
	switch k {
	case KindContact:
		return "contact-submissions"
	case KindEarlyAccess:
		return "early-access-submissions"
	case KindPartner:
		return "partner-submissions"
	}
	return ""
}

// ParseKind accepts either a kind slug ("early-access") or a table name ("early_access_submissions")
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if s == string(k) || s == k.Collection() {
			return k, true
		}
	}
	return "", false
}

// StatusesFor returns the review statuses an operator may set for a collection
func StatusesFor(collection string) []string {
	if collection == TablePartnerSubmissions {
		return []string{StatusNew, StatusContacted, StatusInDiscussion, StatusClosed}
	}
	return []string{StatusNew, StatusContacted, StatusClosed}
}

// IsValidStatus checks if the status is valid for the collection
func IsValidStatus(collection, status string) bool {
	for _, s := range StatusesFor(collection) {
		if s == status {
			return true
		}
	}
	return false
}

// Submission is implemented by all three submission rows
type Submission interface {
	Kind() Kind
	GetID() string
	ReviewStatus() string
	// SearchFields are the values matched by the dashboard search box
	SearchFields() []string
	Record() Record
}

type ContactSubmission struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Phone     *string   `json:"phone"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"not null;default:new;index" json:"status"`
	CreatedAt time.Time `gorm:"<-:create;autoCreateTime;index" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (s *ContactSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = StatusNew
	}
	return nil
}

func (ContactSubmission) TableName() string {
	return TableContactSubmissions
}

func (ContactSubmission) Kind() Kind             { return KindContact }
func (s ContactSubmission) GetID() string        { return s.ID }
func (s ContactSubmission) ReviewStatus() string { return s.Status }

func (s ContactSubmission) SearchFields() []string {
	return []string{s.Name, s.Email}
}

// Record returns the row in column order
func (s ContactSubmission) Record() Record {
	return Record{
		{"id", s.ID},
		{"name", s.Name},
		{"email", s.Email},
		{"phone", s.Phone},
		{"message", s.Message},
		{"status", s.Status},
		{"created_at", s.CreatedAt},
	}
}

type EarlyAccessSubmission struct {
	ID                  string                      `gorm:"type:uuid;primarykey" json:"id"`
	FullName            string                      `gorm:"not null" json:"full_name"`
	Email               string                      `gorm:"not null" json:"email"`
	PhoneNumber         string                      `gorm:"not null" json:"phone_number"`
	UserRole            string                      `gorm:"not null" json:"user_role"`
	CollegeOrganization *string                     `json:"college_organization"`
	City                *string                     `json:"city"`
	Reason              *string                     `gorm:"type:text" json:"reason"`
	InterestedFeatures  datatypes.JSONSlice[string] `gorm:"not null" json:"interested_features"`
	Consent             bool                        `gorm:"not null" json:"consent"`
	Status              string                      `gorm:"not null;default:new;index" json:"status"`
	CreatedAt           time.Time                   `gorm:"<-:create;autoCreateTime;index" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (s *EarlyAccessSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = StatusNew
	}
	return nil
}

func (EarlyAccessSubmission) TableName() string {
	return TableEarlyAccessSubmissions
}

func (EarlyAccessSubmission) Kind() Kind             { return KindEarlyAccess }
func (s EarlyAccessSubmission) GetID() string        { return s.ID }
func (s EarlyAccessSubmission) ReviewStatus() string { return s.Status }

func (s EarlyAccessSubmission) SearchFields() []string {
	return []string{s.FullName, s.Email, deref(s.CollegeOrganization)}
}

// Record returns the row in column order
func (s EarlyAccessSubmission) Record() Record {
	return Record{
		{"id", s.ID},
		{"full_name", s.FullName},
		{"email", s.Email},
		{"phone_number", s.PhoneNumber},
		{"user_role", s.UserRole},
		{"college_organization", s.CollegeOrganization},
		{"city", s.City},
		{"reason", s.Reason},
		{"interested_features", []string(s.InterestedFeatures)},
		{"consent", s.Consent},
		{"status", s.Status},
		{"created_at", s.CreatedAt},
	}
}

type PartnerSubmission struct {
	ID                string                      `gorm:"type:uuid;primarykey" json:"id"`
	FullName          string                      `gorm:"not null" json:"full_name"`
	PhoneNumber       string                      `gorm:"not null" json:"phone_number"`
	Email             string                      `gorm:"not null" json:"email"`
	UserRole          string                      `gorm:"not null" json:"user_role"`
	OrganizationName  *string                     `json:"organization_name"`
	AreasOfInterest   datatypes.JSONSlice[string] `gorm:"not null" json:"areas_of_interest"`
	InterestedDomains datatypes.JSONSlice[string] `gorm:"not null" json:"interested_domains"`
	Message           *string                     `gorm:"type:text" json:"message"`
	Consent           bool                        `gorm:"not null" json:"consent"`
	Status            string                      `gorm:"not null;default:new;index" json:"status"`
	CreatedAt         time.Time                   `gorm:"<-:create;autoCreateTime;index" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (s *PartnerSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = StatusNew
	}
	return nil
}

func (PartnerSubmission) TableName() string {
	return TablePartnerSubmissions
}

func (PartnerSubmission) Kind() Kind             { return KindPartner }
func (s PartnerSubmission) GetID() string        { return s.ID }
func (s PartnerSubmission) ReviewStatus() string { return s.Status }

func (s PartnerSubmission) SearchFields() []string {
	return []string{s.FullName, s.Email, deref(s.OrganizationName)}
}

// Record returns the row in column order
func (s PartnerSubmission) Record() Record {
	return Record{
		{"id", s.ID},
		{"full_name", s.FullName},
		{"phone_number", s.PhoneNumber},
		{"email", s.Email},
		{"user_role", s.UserRole},
		{"organization_name", s.OrganizationName},
		{"areas_of_interest", []string(s.AreasOfInterest)},
		{"interested_domains", []string(s.InterestedDomains)},
		{"message", s.Message},
		{"consent", s.Consent},
		{"status", s.Status},
		{"created_at", s.CreatedAt},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
