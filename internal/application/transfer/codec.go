// Package transfer implements the JSON export/import document format.
package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/interntrack/tracker/internal/application"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
)

// MaxDocumentSize bounds how much of an uploaded file is read.
const MaxDocumentSize = 10 << 20

const documentSchemaJSON = `{"type": "array"}`

// elementSchemaJSON is the minimal per-record check: the identity and the
// three fields every row needs. Anything else is taken as-is.
const elementSchemaJSON = `{
  "type": "object",
  "required": ["id", "companyName", "position", "status"],
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "companyName": {"type": "string", "minLength": 1},
    "position":    {"type": "string", "minLength": 1},
    "status":      {"type": "string", "minLength": 1}
  }
}`

var (
	documentSchema = mustSchema(documentSchemaJSON)
	elementSchema  = mustSchema(elementSchemaJSON)
)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("transfer: invalid built-in schema: %v", err))
	}
	return schema
}

// FormatError is returned when an import document cannot be used at all:
// it is not JSON, or its top-level value is not an array. The collection is
// left unchanged.
type FormatError struct {
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FormatError) Unwrap() error { return e.Cause }

// IsFormatError reports whether err is (or wraps) a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// ExportFilename names an export file after the UTC calendar date of now.
func ExportFilename(now time.Time) string {
	return "internship-applications-" + now.UTC().Format(application.DateLayout) + ".json"
}

// Encode returns the full collection as a pretty-printed JSON array.
func Encode(c application.Collection) ([]byte, error) {
	var buf bytes.Buffer
	if err := Export(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes the full collection as a pretty-printed JSON array. No view
// filters apply.
func Export(w io.Writer, c application.Collection) error {
	if c == nil {
		c = application.Collection{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Parsed is the result of reading an import document.
type Parsed struct {
	Records  application.Collection
	Rejected int
}

// Parse decodes an import document. Elements missing a non-empty id,
// companyName, position or status are skipped and counted in Rejected.
func Parse(data []byte) (Parsed, error) {
	if !json.Valid(data) {
		return Parsed{}, &FormatError{Message: "Invalid JSON file"}
	}
	res, err := documentSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Parsed{}, &FormatError{Message: "Invalid JSON file", Cause: err}
	}
	if !res.Valid() {
		return Parsed{}, &FormatError{Message: "Invalid file format"}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return Parsed{}, &FormatError{Message: "Invalid file format", Cause: err}
	}

	out := Parsed{Records: make(application.Collection, 0, len(elems))}
	for _, raw := range elems {
		a, ok := parseElement(raw)
		if !ok {
			out.Rejected++
			continue
		}
		out.Records = append(out.Records, a)
	}
	return out, nil
}

func parseElement(raw json.RawMessage) (application.Application, bool) {
	res, err := elementSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil || !res.Valid() {
		return application.Application{}, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return application.Application{}, false
	}
	text := func(k string) string {
		s, err := cast.ToStringE(m[k])
		if err != nil {
			return ""
		}
		return s
	}
	return application.Application{
		ID:              text("id"),
		CompanyName:     text("companyName"),
		Position:        text("position"),
		AppliedOn:       text("appliedOn"),
		ContactPerson:   text("contactPerson"),
		ApplicationLink: text("applicationLink"),
		ApplicationType: application.Type(text("applicationType")),
		Source:          text("source"),
		Status:          application.Status(text("status")),
		Notes:           text("notes"),
		CreatedAt:       text("createdAt"),
		UpdatedAt:       text("updatedAt"),
	}, true
}

// ReadResult is delivered once by ReadAsync.
type ReadResult struct {
	Parsed Parsed
	Err    error
}

// ReadAsync reads and parses an import document without blocking the caller.
// Exactly one result is sent on the returned channel; if ctx ends first the
// result carries ctx.Err().
func ReadAsync(ctx context.Context, r io.Reader) <-chan ReadResult {
	ch := make(chan ReadResult, 1)
	go func() {
		defer close(ch)
		data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
		if err != nil {
			ch <- ReadResult{Err: fmt.Errorf("read import: %w", err)}
			return
		}
		if len(data) > MaxDocumentSize {
			ch <- ReadResult{Err: &FormatError{Message: fmt.Sprintf("File too large (limit %d MB)", MaxDocumentSize>>20)}}
			return
		}
		if err := ctx.Err(); err != nil {
			ch <- ReadResult{Err: err}
			return
		}
		p, err := Parse(data)
		ch <- ReadResult{Parsed: p, Err: err}
	}()
	return ch
}

// Report counts what an import did to the collection.
type Report struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Total      int `json:"total"`
}

// Merge appends imported records whose id is not already present. Existing
// records win; a repeated id inside the import keeps its first occurrence.
// existing is not modified.
func Merge(existing, imported application.Collection) (application.Collection, Report) {
	seen := existing.IDs()
	merged := existing.Clone()
	var rep Report
	for _, a := range imported {
		if _, dup := seen[a.ID]; dup {
			rep.Duplicates++
			continue
		}
		seen[a.ID] = struct{}{}
		merged = append(merged, a)
		rep.Added++
	}
	rep.Total = len(merged)
	return merged, rep
}
