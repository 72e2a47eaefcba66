// internal/intake/validator/validator.go
package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/validation"
	"reprocess-intake/internal/models"
	"reprocess-intake/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

// Validator checks a submission document against the JSON schema and the
// mission business rules. It is pure: the same input always yields the
// same outcome, and sibling items never short-circuit each other.
type Validator struct {
	schema   *gojsonschema.Schema
	registry *registry.InstrumentRegistry
	logger   logger.Logger
}

func New(schemaPath string, reg *registry.InstrumentRegistry, log logger.Logger) (*Validator, error) {
	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", schemaPath, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schemaPath, err)
	}
	return &Validator{
		schema:   schema,
		registry: reg,
		logger:   log.WithFields(map[string]interface{}{"component": "validator"}),
	}, nil
}

// Validate parses and checks a raw submission document. The returned
// document preserves item order; itemErrors holds one entry per invalid
// item with every applicable field error. A non-nil error means the
// document itself is unusable (not a JSON object, no requests array) and
// nothing can be processed.
func (v *Validator) Validate(raw []byte) (*models.SubmissionDocument, []validation.ItemErrors, error) {
	var doc models.SubmissionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("submission is not a valid JSON document: %w", err)
	}
	if doc.Requests == nil {
		return nil, nil, fmt.Errorf("submission has no requests array")
	}
	if len(doc.Requests) == 0 {
		return nil, nil, fmt.Errorf("requests array is empty")
	}

	perItem := make([]validation.ItemErrors, len(doc.Requests))
	for i := range perItem {
		perItem[i].Index = i
	}

	v.applySchema(raw, perItem)

	for i := range doc.Requests {
		v.checkItem(&doc.Requests[i], &perItem[i])
	}

	var failed []validation.ItemErrors
	for i := range perItem {
		if perItem[i].HasErrors() {
			v.logger.Warn("request item failed validation", map[string]interface{}{
				"index":  i,
				"errors": perItem[i].Messages(),
			})
			failed = append(failed, perItem[i])
		}
	}

	return &doc, failed, nil
}

// applySchema runs the structural pass and attributes each schema error
// to the item it belongs to via the "requests.N...." result context.
func (v *Validator) applySchema(raw []byte, perItem []validation.ItemErrors) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// Document already survived json.Unmarshal; treat a loader failure
		// as a document-wide schema violation on every item.
		for i := range perItem {
			perItem[i].Add("requests", validation.CodeSchemaViolation, "schema validation error: %v", err)
		}
		return
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		idx, ok := itemIndex(field)
		if !ok {
			// Top-level violations (e.g. wrong requests type) apply to all.
			for i := range perItem {
				perItem[i].Add(field, validation.CodeSchemaViolation, "%s", desc.Description())
			}
			continue
		}
		if idx < len(perItem) {
			perItem[idx].Add(field, validation.CodeSchemaViolation, "%s", desc.Description())
		}
	}
}

// itemIndex extracts N from a result field like "requests.3.request_from_date".
func itemIndex(field string) (int, bool) {
	parts := strings.Split(field, ".")
	if len(parts) < 2 || parts[0] != "requests" {
		return 0, false
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return idx, true
}

// checkItem applies the semantic rules, collecting every applicable error
// rather than stopping at the first.
func (v *Validator) checkItem(item *models.RequestItem, ie *validation.ItemErrors) {
	isRange := item.IsDateRange()
	isFiles := item.IsFileList()

	switch {
	case isRange && isFiles:
		ie.Add("requests", validation.CodeAmbiguousShape,
			"ambiguous request shape: both request_instrument and request_filenames present")
	case !isRange && !isFiles:
		ie.Add("requests", validation.CodeAmbiguousShape,
			"ambiguous request shape: neither request_instrument nor request_filenames present")
	}

	if isRange {
		v.checkDateRange(item, ie)
	}
	if isFiles {
		v.checkFileList(item, ie)
	}
}

func (v *Validator) checkDateRange(item *models.RequestItem, ie *validation.ItemErrors) {
	if _, ok := v.registry.Lookup(item.Instrument); !ok {
		ie.Add("request_instrument", validation.CodeUnknownInstrument,
			"unknown instrument %q (known: %s)", item.Instrument, strings.Join(v.registry.IDs(), ", "))
	}

	from, fromOK := checkDate("request_from_date", item.FromDate, ie)
	to, toOK := checkDate("request_to_date", item.ToDate, ie)

	if fromOK && toOK && item.FromDate != "" && item.ToDate != "" && from.After(to) {
		ie.Add("request_from_date", validation.CodeDateOrder,
			"from date %s is after to date %s", item.FromDate, item.ToDate)
	}
}

// checkDate validates an optional YYYYMMDD field. Empty is allowed; the
// payload generator resolves missing bounds against the instrument's
// operational boundary.
func checkDate(field, value string, ie *validation.ItemErrors) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil || len(value) != 8 {
		ie.Add(field, validation.CodeInvalidDate, "%q is not a valid YYYYMMDD calendar date", value)
		return time.Time{}, false
	}
	return t, true
}

func (v *Validator) checkFileList(item *models.RequestItem, ie *validation.ItemErrors) {
	// Filename requests target exact files; date and level fields have no
	// meaning and indicate a malformed request.
	if item.FromDate != "" || item.ToDate != "" {
		ie.Add("request_filenames", validation.CodeAmbiguousShape,
			"filename requests cannot carry date fields")
	}
	if item.FromLevel != "" {
		ie.Add("request_from_level", validation.CodeAmbiguousShape,
			"filename requests cannot carry a processing level")
	}

	seen := make(map[string]bool, len(item.Filenames))
	for i, name := range item.Filenames {
		field := fmt.Sprintf("request_filenames[%d]", i)
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			ie.Add(field, validation.CodeInvalidFilename, "filename must not be empty")
			continue
		}
		if strings.ContainsAny(trimmed, `/\`) || strings.Contains(trimmed, "..") {
			ie.Add(field, validation.CodeInvalidFilename,
				"filename %q must not contain path separators or traversal sequences", trimmed)
			continue
		}
		if seen[trimmed] {
			ie.Add(field, validation.CodeDuplicateFilename, "duplicate filename %q", trimmed)
			continue
		}
		seen[trimmed] = true
	}
}
