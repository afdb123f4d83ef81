package application

import (
	"time"
)

// Status is the pipeline stage of an application. No transition order is
// enforced: any status may be set at any time.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusApplied   Status = "Applied"
	StatusInReview  Status = "In Review"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
	StatusArchived  Status = "Archived"
)

// Type tells how the application was initiated.
type Type string

const (
	TypeSpontaneous Type = "Spontaneous"
	TypeJobPosting  Type = "Job Posting"
)

const (
	// DateLayout is the calendar date format used for AppliedOn.
	DateLayout = "2006-01-02"
	// TimestampLayout matches the ISO-8601 millisecond form used for CreatedAt/UpdatedAt.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var (
	statuses = []Status{StatusDraft, StatusApplied, StatusInReview, StatusInterview, StatusOffer, StatusRejected, StatusArchived}
	types    = []Type{TypeSpontaneous, TypeJobPosting}
)

// Application is one tracked opportunity. Date and timestamp fields are kept
// as text so that imported documents survive unchanged, including values
// that do not parse.
type Application struct {
	ID              string `json:"id" bson:"id"`
	CompanyName     string `json:"companyName" bson:"companyName"`
	Position        string `json:"position" bson:"position"`
	AppliedOn       string `json:"appliedOn" bson:"appliedOn"`
	ContactPerson   string `json:"contactPerson" bson:"contactPerson"`
	ApplicationLink string `json:"applicationLink" bson:"applicationLink"`
	ApplicationType Type   `json:"applicationType" bson:"applicationType"`
	Source          string `json:"source" bson:"source"`
	Status          Status `json:"status" bson:"status"`
	Notes           string `json:"notes" bson:"notes"`
	CreatedAt       string `json:"createdAt" bson:"createdAt"`
	UpdatedAt       string `json:"updatedAt" bson:"updatedAt"`
}

// Collection is the full set of tracked applications in insertion order.
type Collection []Application

// Statuses returns every status in display order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// Types returns every application type.
func Types() []Type {
	out := make([]Type, len(types))
	copy(out, types)
	return out
}

// ParseStatus returns the status matching s exactly.
func ParseStatus(s string) (Status, bool) {
	for _, st := range statuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ParseType returns the application type matching s exactly.
func ParseType(s string) (Type, bool) {
	for _, t := range types {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// AppliedDate parses AppliedOn as a calendar date or, for imported records,
// an RFC 3339 timestamp. ok is false when the field is empty or malformed.
func (a Application) AppliedDate() (time.Time, bool) {
	return parseDate(a.AppliedOn)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Input returns the user-editable fields of a.
func (a Application) Input() Input {
	return Input{
		CompanyName:     a.CompanyName,
		Position:        a.Position,
		AppliedOn:       a.AppliedOn,
		ContactPerson:   a.ContactPerson,
		ApplicationLink: a.ApplicationLink,
		ApplicationType: a.ApplicationType,
		Source:          a.Source,
		Status:          a.Status,
		Notes:           a.Notes,
	}
}

// Clone returns a copy of the collection that shares no backing array with c.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// IndexOf returns the position of the record with the given id, or -1.
func (c Collection) IndexOf(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// IDs returns the set of record identities in c.
func (c Collection) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(c))
	for _, a := range c {
		out[a.ID] = struct{}{}
	}
	return out
}

// FormatTimestamp renders t the way CreatedAt/UpdatedAt are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
