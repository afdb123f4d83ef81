// Package view computes the filtered, sorted projection of the collection
// shown to the user. Everything here is pure: inputs are never modified.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/interntrack/tracker/internal/application"
)

// All disables a filter dimension.
const All = "All"

// Order is the sort direction on appliedOn.
type Order string

const (
	Newest Order = "newest"
	Oldest Order = "oldest"
)

// Query is the active filter state plus sort direction.
type Query struct {
	Status string
	Type   string
	Source string
	Sort   Order
}

// DefaultQuery shows everything, newest first.
func DefaultQuery() Query {
	return Query{Status: All, Type: All, Source: All, Sort: Newest}
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// ParseQuery builds a Query from raw parameters. Empty values and "all" (any
// case) disable a filter. An unknown status or sort value is an error; type
// and source are free text since their options come from the data.
func ParseQuery(status, typ, source, sortBy string) (Query, error) {
	q := DefaultQuery()
	if !isAll(status) {
		st, ok := application.ParseStatus(status)
		if !ok {
			return Query{}, fmt.Errorf("unknown status %q", status)
		}
		q.Status = string(st)
	}
	if !isAll(typ) {
		q.Type = typ
	}
	if !isAll(source) {
		q.Source = source
	}
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "", string(Newest):
		q.Sort = Newest
	case string(Oldest):
		q.Sort = Oldest
	default:
		return Query{}, fmt.Errorf("unknown sort %q (want newest or oldest)", sortBy)
	}
	return q, nil
}

// Matches reports whether a passes every active filter.
func (q Query) Matches(a application.Application) bool {
	if !isAll(q.Status) && string(a.Status) != q.Status {
		return false
	}
	if !isAll(q.Type) && string(a.ApplicationType) != q.Type {
		return false
	}
	if !isAll(q.Source) && a.Source != q.Source {
		return false
	}
	return true
}

// Apply returns a new slice holding the records of c that match q, ordered by
// appliedOn in the requested direction. Records with equal dates keep their
// relative order from c. Missing or malformed dates sort as the earliest.
func Apply(c application.Collection, q Query) application.Collection {
	out := make(application.Collection, 0, len(c))
	for _, a := range c {
		if q.Matches(a) {
			out = append(out, a)
		}
	}
	keys := make(map[string]time.Time, len(out))
	key := func(a application.Application) time.Time {
		if t, ok := keys[a.AppliedOn]; ok {
			return t
		}
		t, _ := a.AppliedDate()
		keys[a.AppliedOn] = t
		return t
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := key(out[i]), key(out[j])
		if q.Sort == Oldest {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})
	return out
}

// Options holds the filter choices derived from the current collection.
type Options struct {
	Statuses []string `json:"statuses"`
	Types    []string `json:"types"`
	Sources  []string `json:"sources"`
}

// OptionsFor returns the distinct non-empty types and sources present in c in
// first-seen order, plus the fixed status list.
func OptionsFor(c application.Collection) Options {
	opts := Options{
		Statuses: make([]string, 0, len(application.Statuses())),
		Types:    distinct(c, func(a application.Application) string { return string(a.ApplicationType) }),
		Sources:  distinct(c, func(a application.Application) string { return a.Source }),
	}
	for _, st := range application.Statuses() {
		opts.Statuses = append(opts.Statuses, string(st))
	}
	return opts
}

func distinct(c application.Collection, field func(application.Application) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, a := range c {
		v := field(a)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
