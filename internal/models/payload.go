// internal/models/payload.go
package models

// InvocationPayload is one unit of downstream work. A date-range request
// expands into one payload per calendar day; a file-list request into one
// payload per filename. Each payload is consumed exactly once by the
// dispatcher and never mutated.
type InvocationPayload struct {
	Instrument string `json:"instrument,omitempty"`
	Date       string `json:"date,omitempty"`
	FromLevel  string `json:"from_level,omitempty"`
	Filename   string `json:"filename,omitempty"`
	UseDev     bool   `json:"use_dev"`

	// Provenance back to the archived request.
	SourceKey   string `json:"source_key"`
	Description string `json:"description,omitempty"`
}

// DispatchStatus is the terminal state of one payload.
type DispatchStatus string

const (
	DispatchAccepted DispatchStatus = "accepted"
	DispatchRejected DispatchStatus = "rejected"
	DispatchFailed   DispatchStatus = "failed"
)

// DispatchResult is the per-payload outcome. Attempts counts every
// invocation tried, including the final one.
type DispatchResult struct {
	Payload  InvocationPayload `json:"payload"`
	Status   DispatchStatus    `json:"status"`
	Attempts int               `json:"attempts"`
	Error    string            `json:"error,omitempty"`
}
