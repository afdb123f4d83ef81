package application

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Input carries the fields a user submits through the create/edit form.
type Input struct {
	CompanyName     string `json:"companyName" validate:"required"`
	Position        string `json:"position" validate:"required"`
	AppliedOn       string `json:"appliedOn" validate:"omitempty,datetime=2006-01-02"`
	ContactPerson   string `json:"contactPerson"`
	ApplicationLink string `json:"applicationLink" validate:"omitempty,url"`
	ApplicationType Type   `json:"applicationType" validate:"required,oneof=Spontaneous 'Job Posting'"`
	Source          string `json:"source"`
	Status          Status `json:"status" validate:"required,oneof=Draft Applied 'In Review' Interview Offer Rejected Archived"`
	Notes           string `json:"notes"`
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned when an Input fails validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid application: " + strings.Join(parts, ", ")
}

// IDGenerator returns a fresh record identity.
type IDGenerator func() string

// NewID generates a random UUID identity.
func NewID() string { return uuid.NewString() }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// Normalize trims surrounding whitespace from every text field. A timestamp
// in AppliedOn is cut down to its UTC calendar date.
func (in Input) Normalize() Input {
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Position = strings.TrimSpace(in.Position)
	in.AppliedOn = strings.TrimSpace(in.AppliedOn)
	if _, err := time.Parse(DateLayout, in.AppliedOn); err != nil {
		if t, ok := parseDate(in.AppliedOn); ok {
			in.AppliedOn = t.Format(DateLayout)
		}
	}
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.ApplicationLink = strings.TrimSpace(in.ApplicationLink)
	in.ApplicationType = Type(strings.TrimSpace(string(in.ApplicationType)))
	in.Source = strings.TrimSpace(in.Source)
	in.Status = Status(strings.TrimSpace(string(in.Status)))
	return in
}

// WithDefaults fills the fields a new-entry form pre-populates: today's date,
// a job-posting type and draft status.
func (in Input) WithDefaults(now time.Time) Input {
	if in.AppliedOn == "" {
		in.AppliedOn = now.UTC().Format(DateLayout)
	}
	if in.ApplicationType == "" {
		in.ApplicationType = TypeJobPosting
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	return in
}

// Validate checks the input against the form rules.
func (in Input) Validate() error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	sort.SliceStable(out.Fields, func(i, j int) bool { return out.Fields[i].Field < out.Fields[j].Field })
	return out
}

// New builds a record from a submitted form. The system assigns the id and
// sets createdAt == updatedAt == now.
func New(in Input, now time.Time, gen IDGenerator) (Application, error) {
	in = in.Normalize().WithDefaults(now)
	if err := in.Validate(); err != nil {
		return Application{}, err
	}
	if gen == nil {
		gen = NewID
	}
	ts := FormatTimestamp(now)
	a := Application{ID: gen(), CreatedAt: ts, UpdatedAt: ts}
	a.assign(in)
	return a, nil
}

// Apply returns a copy of a with the edited fields applied. Only UpdatedAt
// changes among the system fields.
func (a Application) Apply(in Input, now time.Time) (Application, error) {
	in = in.Normalize()
	// imported records may lack a type; the edit form preselects Job Posting
	if in.ApplicationType == "" {
		in.ApplicationType = TypeJobPosting
	}
	if err := in.Validate(); err != nil {
		return Application{}, err
	}
	out := a
	out.assign(in)
	out.UpdatedAt = FormatTimestamp(now)
	// createdAt <= updatedAt even if the clock moved backwards
	if created, err := time.Parse(time.RFC3339, a.CreatedAt); err == nil && created.After(now) {
		out.UpdatedAt = a.CreatedAt
	}
	return out, nil
}

func (a *Application) assign(in Input) {
	a.CompanyName = in.CompanyName
	a.Position = in.Position
	a.AppliedOn = in.AppliedOn
	a.ContactPerson = in.ContactPerson
	a.ApplicationLink = in.ApplicationLink
	a.ApplicationType = in.ApplicationType
	a.Source = in.Source
	a.Status = in.Status
	a.Notes = in.Notes
}
