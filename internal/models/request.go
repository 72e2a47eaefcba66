// internal/models/request.go
package models

import (
	"fmt"
	"time"
)

// SubmissionDocument is the top-level object submitted through a pull
// request. The order of Requests is preserved end-to-end.
type SubmissionDocument struct {
	Requests []RequestItem `json:"requests"`
}

// RequestItem is one reprocessing request. Exactly one of the two shapes
// must be present: a date-range request (Instrument set, Filenames empty)
// or a file-list request (Filenames set, Instrument empty). An item
// matching both or neither shapes is rejected by the validator.
type RequestItem struct {
	Instrument  string   `json:"request_instrument,omitempty"`
	FromDate    string   `json:"request_from_date,omitempty"`
	ToDate      string   `json:"request_to_date,omitempty"`
	FromLevel   string   `json:"request_from_level,omitempty"`
	Filenames   []string `json:"request_filenames,omitempty"`
	Description string   `json:"request_description,omitempty"`
	UseDev      bool     `json:"use_dev,omitempty"`
}

// IsFileList reports whether the item carries the file-list shape.
func (r *RequestItem) IsFileList() bool {
	return len(r.Filenames) > 0
}

// IsDateRange reports whether the item carries the date-range shape.
func (r *RequestItem) IsDateRange() bool {
	return r.Instrument != ""
}

// SubmissionContext carries the out-of-band caller metadata for one
// submission. Submitter is an already-authenticated identity string;
// Timestamp is second-resolution in YYYYMMDDHHMMSS form.
type SubmissionContext struct {
	Submitter string
	Timestamp string
}

// Validate checks the context fields the archive key depends on.
func (c SubmissionContext) Validate() error {
	if c.Submitter == "" {
		return fmt.Errorf("submitter must not be empty")
	}
	if _, err := time.Parse("20060102150405", c.Timestamp); err != nil {
		return fmt.Errorf("timestamp %q is not YYYYMMDDHHMMSS: %w", c.Timestamp, err)
	}
	return nil
}

// Year returns the four-digit year portion of the submission timestamp.
func (c SubmissionContext) Year() string { return c.Timestamp[:4] }

// Month returns the two-digit month portion of the submission timestamp.
func (c SubmissionContext) Month() string { return c.Timestamp[4:6] }

// CanonicalRequestRecord is a validated RequestItem bound to its archive
// key. Created once per accepted item at canonicalization time and
// immutable afterwards; this is the document persisted under the key.
type CanonicalRequestRecord struct {
	Request   RequestItem `json:"request"`
	Key       string      `json:"key"`
	Submitter string      `json:"submitter"`
	Timestamp string      `json:"timestamp"`
	Index     int         `json:"submission_index"`
}

// DateLayout is the calendar-date format used throughout submissions.
const DateLayout = "20060102"

// DefaultFromLevel is the lowest processing level, applied when a
// date-range request does not name one.
const DefaultFromLevel = "l0"
