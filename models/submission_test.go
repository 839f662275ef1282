package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
		ok    bool
	}{
		{"contact", KindContact, true},
		{"contact_submissions", KindContact, true},
		{"early-access", KindEarlyAccess, true},
		{"early_access_submissions", KindEarlyAccess, true},
		{"partner", KindPartner, true},
		{"partner_submissions", KindPartner, true},
		{"user_roles", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, ok := ParseKind(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	t.Run("in discussion is partner only", func(t *testing.T) {
		assert.True(t, IsValidStatus(TablePartnerSubmissions, StatusInDiscussion))
		assert.False(t, IsValidStatus(TableContactSubmissions, StatusInDiscussion))
		assert.False(t, IsValidStatus(TableEarlyAccessSubmissions, StatusInDiscussion))
	})

	t.Run("shared statuses", func(t *testing.T) {
		for _, c := range []string{TableContactSubmissions, TableEarlyAccessSubmissions, TablePartnerSubmissions} {
			for _, s := range []string{StatusNew, StatusContacted, StatusClosed} {
				assert.True(t, IsValidStatus(c, s), "%s/%s", c, s)
			}
			assert.False(t, IsValidStatus(c, "archived"))
			assert.False(t, IsValidStatus(c, ""))
		}
	})
}

func TestRecordOrder(t *testing.T) {
	org := "IIT Delhi"
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := EarlyAccessSubmission{
		ID:                  "id-1",
		FullName:            "Asha Rao",
		Email:               "asha@example.com",
		PhoneNumber:         "9876543210",
		UserRole:            "Student",
		CollegeOrganization: &org,
		InterestedFeatures:  datatypes.JSONSlice[string]{"Events"},
		Consent:             true,
		Status:              StatusNew,
		CreatedAt:           created,
	}

	rec := row.Record()
	assert.Equal(t, []string{
		"id", "full_name", "email", "phone_number", "user_role", "college_organization",
		"city", "reason", "interested_features", "consent", "status", "created_at",
	}, rec.Keys())

	v, ok := rec.Get("interested_features")
	assert.True(t, ok)
	assert.Equal(t, []string{"Events"}, v)

	_, ok = rec.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"Asha Rao", "asha@example.com", "IIT Delhi"}, row.SearchFields())
}

func TestKindMetadata(t *testing.T) {
	assert.Equal(t, TableContactSubmissions, KindContact.Collection())
	assert.Equal(t, "early-access-submissions", KindEarlyAccess.ExportBase())
	assert.Equal(t, "partner-submissions", KindPartner.ExportBase())

	var sub Submission = PartnerSubmission{ID: "p1", Status: StatusClosed}
	assert.Equal(t, KindPartner, sub.Kind())
	assert.Equal(t, "p1", sub.GetID())
	assert.Equal(t, StatusClosed, sub.ReviewStatus())
	assert.Len(t, Records([]PartnerSubmission{{}, {}}), 2)
}
