package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedID(id string) IDGenerator { return func() string { return id } }

func validInput() Input {
	return Input{
		CompanyName:     "Acme",
		Position:        "Backend Intern",
		AppliedOn:       "2024-01-10",
		ApplicationType: TypeJobPosting,
		Status:          StatusApplied,
		Source:          "LinkedIn",
	}
}

func TestNew_SetsSystemFields(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	a, err := New(validInput(), now, fixedID("a1"))
	require.NoError(t, err)
	require.Equal(t, "a1", a.ID)
	require.Equal(t, "2024-01-10T09:30:00.000Z", a.CreatedAt)
	require.Equal(t, a.CreatedAt, a.UpdatedAt)
	require.Equal(t, "Acme", a.CompanyName)
}

func TestNew_AppliesFormDefaults(t *testing.T) {
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	a, err := New(Input{CompanyName: "Acme", Position: "Intern"}, now, nil)
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Equal(t, "2024-05-02", a.AppliedOn)
	require.Equal(t, TypeJobPosting, a.ApplicationType)
	require.Equal(t, StatusDraft, a.Status)
}

func TestNew_RejectsMissingRequiredFields(t *testing.T) {
	in := validInput()
	in.CompanyName = "   "
	in.Position = ""
	_, err := New(in, time.Now(), nil)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	require.Equal(t, "companyName", verr.Fields[0].Field)
	require.Equal(t, "position", verr.Fields[1].Field)
}

func TestValidate_RejectsUnknownEnumsAndBadDates(t *testing.T) {
	in := validInput()
	in.Status = "Ghosted"
	in.ApplicationType = "Referral"
	in.AppliedOn = "10/01/2024"
	in.ApplicationLink = "not a url"
	err := in.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	require.Equal(t, "oneof", fields["status"])
	require.Equal(t, "oneof", fields["applicationType"])
	require.Equal(t, "datetime", fields["appliedOn"])
	require.Equal(t, "url", fields["applicationLink"])
}

func TestValidate_AcceptsEveryStatus(t *testing.T) {
	for _, st := range Statuses() {
		in := validInput()
		in.Status = st
		require.NoError(t, in.Validate(), "status %q", st)
	}
	for _, ty := range Types() {
		in := validInput()
		in.ApplicationType = ty
		require.NoError(t, in.Validate(), "type %q", ty)
	}
}

func TestApply_ChangesOnlyUpdatedAt(t *testing.T) {
	created := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	a, err := New(validInput(), created, fixedID("a1"))
	require.NoError(t, err)

	in := a.Input()
	in.Status = StatusInterview
	in.Notes = "first round booked"
	edited, err := a.Apply(in, created.Add(48*time.Hour))
	require.NoError(t, err)

	require.Equal(t, a.ID, edited.ID)
	require.Equal(t, a.CreatedAt, edited.CreatedAt)
	require.Equal(t, "2024-01-12T09:30:00.000Z", edited.UpdatedAt)
	require.Equal(t, StatusInterview, edited.Status)
	require.Equal(t, StatusApplied, a.Status, "receiver must not be mutated")
}

func TestApply_KeepsCreatedBeforeUpdated(t *testing.T) {
	created := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	a, err := New(validInput(), created, fixedID("a1"))
	require.NoError(t, err)

	edited, err := a.Apply(a.Input(), created.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, a.CreatedAt, edited.UpdatedAt)
}

func TestApply_ImportedRecordWithoutType(t *testing.T) {
	imported := Application{
		ID: "m", CompanyName: "A", Position: "B", Status: StatusApplied,
		AppliedOn: "2024-06-01T22:30:00.000-05:00",
	}
	in := imported.Input()
	in.Notes = "follow up"

	edited, err := imported.Apply(in, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, TypeJobPosting, edited.ApplicationType)
	require.Equal(t, "2024-06-02", edited.AppliedOn)
	require.Equal(t, "follow up", edited.Notes)
	require.Equal(t, "m", edited.ID)
}

func TestAppliedDate(t *testing.T) {
	d, ok := Application{AppliedOn: "2024-03-01"}.AppliedDate()
	require.True(t, ok)
	require.Equal(t, time.March, d.Month())

	d, ok = Application{AppliedOn: "2024-06-01T10:00:00.000Z"}.AppliedDate()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), d)

	_, ok = Application{AppliedOn: "soon"}.AppliedDate()
	require.False(t, ok)
	_, ok = Application{}.AppliedDate()
	require.False(t, ok)
}

func TestParseStatusAndType(t *testing.T) {
	st, ok := ParseStatus("In Review")
	require.True(t, ok)
	require.Equal(t, StatusInReview, st)
	_, ok = ParseStatus("in review")
	require.False(t, ok)

	ty, ok := ParseType("Job Posting")
	require.True(t, ok)
	require.Equal(t, TypeJobPosting, ty)
}

func TestCollectionHelpers(t *testing.T) {
	c := Collection{{ID: "a"}, {ID: "b"}}
	require.Equal(t, 1, c.IndexOf("b"))
	require.Equal(t, -1, c.IndexOf("z"))

	clone := c.Clone()
	clone[0].ID = "changed"
	require.Equal(t, "a", c[0].ID)

	require.Len(t, c.IDs(), 2)
	require.NotNil(t, Collection(nil).Clone())
}
