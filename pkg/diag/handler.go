package diag

import (
	"cmp"
	"slices"
)

// Handler collects the diagnostics of one compilation or parse and keeps
// the error and warning counters in step with the list.
type Handler struct {
	src      *Source
	records  []Record
	errors   int
	warnings int
}

// NewHandler creates a handler whose locations resolve against src.
// src may be nil, in which case every record has an unknown position.
func NewHandler(src *Source) *Handler {
	return &Handler{src: src}
}

// Source returns the text locations resolve against.
func (hdl *Handler) Source() *Source {
	return hdl.src
}

// Add records a diagnostic and returns it.
func (hdl *Handler) Add(category Category, location int64, short, long string) Record {
	rec := NewRecord(category, location, short, long, hdl.src)
	hdl.records = append(hdl.records, rec)

	if rec.IsError() {
		hdl.errors++
	} else {
		hdl.warnings++
	}

	return rec
}

// Addf records a diagnostic whose long message equals the short one.
func (hdl *Handler) Addf(category Category, location int64, msg string) Record {
	return hdl.Add(category, location, msg, "")
}

// ErrorCount returns the number of error-severity records.
func (hdl *Handler) ErrorCount() int {
	return hdl.errors
}

// WarningCount returns the number of warning-severity records.
func (hdl *Handler) WarningCount() int {
	return hdl.warnings
}

// Len returns the number of records.
func (hdl *Handler) Len() int {
	return len(hdl.records)
}

// Records returns the diagnostics in source-scan order: sorted by location
// with records of equal location kept in emission order.
func (hdl *Handler) Records() []Record {
	out := slices.Clone(hdl.records)

	slices.SortStableFunc(out, func(left, right Record) int {
		return cmp.Compare(left.Location, right.Location)
	})

	return out
}
