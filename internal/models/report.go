// internal/models/report.go
package models

import "reprocess-intake/internal/common/validation"

// ItemStatus is the per-item outcome recorded in the submission report.
type ItemStatus string

const (
	ItemProcessed        ItemStatus = "processed"
	ItemValidationFailed ItemStatus = "validation_failed"
	ItemCollision        ItemStatus = "collision"
	ItemEmptyExpansion   ItemStatus = "empty_expansion"
)

// ItemReport records the full lifecycle of one RequestItem: validation
// outcome, assigned archive key, and the result of every expanded payload.
type ItemReport struct {
	Index            int                          `json:"index"`
	Status           ItemStatus                   `json:"status"`
	ValidationErrors []validation.ValidationError `json:"validation_errors,omitempty"`
	CanonicalKey     string                       `json:"canonical_key,omitempty"`
	Error            string                       `json:"error,omitempty"`
	Dispatches       []DispatchResult             `json:"dispatches,omitempty"`
}

// SubmissionReport is the single caller-facing artifact for a submission.
// Every RequestItem and every derived payload appears here with an
// explicit status; nothing is swallowed.
type SubmissionReport struct {
	SubmissionID string       `json:"submission_id"`
	Submitter    string       `json:"submitter"`
	Timestamp    string       `json:"timestamp"`
	Items        []ItemReport `json:"items"`
}

// Accepted counts payloads that reached the accepted state.
func (r *SubmissionReport) Accepted() int {
	n := 0
	for _, item := range r.Items {
		for _, d := range item.Dispatches {
			if d.Status == DispatchAccepted {
				n++
			}
		}
	}
	return n
}

// Failed counts payloads that ended rejected or failed.
func (r *SubmissionReport) Failed() int {
	n := 0
	for _, item := range r.Items {
		for _, d := range item.Dispatches {
			if d.Status != DispatchAccepted {
				n++
			}
		}
	}
	return n
}

// FailedItems counts items that did not reach the processed state.
func (r *SubmissionReport) FailedItems() int {
	n := 0
	for _, item := range r.Items {
		if item.Status != ItemProcessed {
			n++
		}
	}
	return n
}
