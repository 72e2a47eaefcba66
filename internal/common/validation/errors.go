// internal/common/validation/errors.go
package validation

import (
	"fmt"
	"strings"
)

// ValidationError is one field-level problem found in a request item.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Error codes shared by the schema and semantic validation passes.
const (
	CodeSchemaViolation   = "SCHEMA_VIOLATION"
	CodeUnknownInstrument = "UNKNOWN_INSTRUMENT"
	CodeInvalidDate       = "INVALID_DATE"
	CodeDateOrder         = "DATE_ORDER"
	CodeInvalidFilename   = "INVALID_FILENAME"
	CodeDuplicateFilename = "DUPLICATE_FILENAME"
	CodeAmbiguousShape    = "AMBIGUOUS_SHAPE"
)

// ItemErrors collects every error found for one request item. Items are
// validated independently; the per-item error list is never truncated to
// the first problem so a submitter can fix everything in one iteration.
type ItemErrors struct {
	Index  int               `json:"index"`
	Errors []ValidationError `json:"errors"`
}

// Add appends a field error.
func (ie *ItemErrors) Add(field, code, format string, args ...interface{}) {
	ie.Errors = append(ie.Errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

// HasErrors reports whether any error was recorded for the item.
func (ie *ItemErrors) HasErrors() bool { return len(ie.Errors) > 0 }

// Messages returns the flat "field: message" list for logging.
func (ie *ItemErrors) Messages() []string {
	out := make([]string, len(ie.Errors))
	for i, e := range ie.Errors {
		out[i] = e.String()
	}
	return out
}

func (ie *ItemErrors) String() string {
	return fmt.Sprintf("item %d: %s", ie.Index, strings.Join(ie.Messages(), "; "))
}
