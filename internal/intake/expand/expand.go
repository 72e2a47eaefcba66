// Package expand converts canonical request records into discrete
// invocation payloads: one per calendar day for date-range requests, one
// per filename for file-list requests. Expansion is pure and repeatable;
// re-invoking it on the same record yields the same sequence.
package expand

import (
	"fmt"
	"time"

	"reprocess-intake/internal/catalog"
	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/metrics"
	"reprocess-intake/internal/models"
)

// Generator expands records. Open-ended date ranges are closed against
// the injected Boundary: a missing from date falls back to the
// instrument's operational start, a missing to date to the current date.
type Generator struct {
	boundary catalog.Boundary
	logger   logger.Logger
}

func NewGenerator(boundary catalog.Boundary, log logger.Logger) *Generator {
	return &Generator{
		boundary: boundary,
		logger:   log.WithFields(map[string]interface{}{"component": "expand"}),
	}
}

// Expand returns the ordered payload sequence for a record. It fails
// with EMPTY_EXPANSION when the record resolves to zero work units; a
// request is never silently dropped.
func (g *Generator) Expand(record *models.CanonicalRequestRecord) ([]models.InvocationPayload, error) {
	var payloads []models.InvocationPayload
	var err error

	switch {
	case record.Request.IsFileList():
		payloads, err = g.expandFileList(record)
	case record.Request.IsDateRange():
		payloads, err = g.expandDateRange(record)
	default:
		// Shape is enforced by validation; a record here is a programming error.
		return nil, apperrors.NewAmbiguousShapeError(fmt.Sprintf("record %s has no recognizable shape", record.Key))
	}
	if err != nil {
		return nil, err
	}

	metrics.PayloadsGenerated.Add(float64(len(payloads)))
	g.logger.Info("request expanded", map[string]interface{}{
		"key":      record.Key,
		"payloads": len(payloads),
	})
	return payloads, nil
}

func (g *Generator) expandDateRange(record *models.CanonicalRequestRecord) ([]models.InvocationPayload, error) {
	req := record.Request

	from, to, err := g.resolveBounds(req)
	if err != nil {
		return nil, err
	}

	if from.After(to) {
		return nil, apperrors.NewEmptyExpansionError(fmt.Sprintf(
			"range for %s resolves to zero days (%s after %s)",
			req.Instrument, from.Format(models.DateLayout), to.Format(models.DateLayout)))
	}

	level := req.FromLevel
	if level == "" {
		level = models.DefaultFromLevel
	}

	var payloads []models.InvocationPayload
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		payloads = append(payloads, models.InvocationPayload{
			Instrument:  req.Instrument,
			Date:        d.Format(models.DateLayout),
			FromLevel:   level,
			UseDev:      req.UseDev,
			SourceKey:   record.Key,
			Description: req.Description,
		})
	}
	return payloads, nil
}

// resolveBounds fills in missing range bounds from the operational
// boundary. Both bounds already passed date validation when present.
func (g *Generator) resolveBounds(req models.RequestItem) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if req.FromDate != "" {
		from, err = time.Parse(models.DateLayout, req.FromDate)
	} else {
		from, err = g.boundary.OperationalStart(req.Instrument)
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if req.ToDate != "" {
		to, err = time.Parse(models.DateLayout, req.ToDate)
	} else {
		to = g.boundary.Today()
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return from, to, nil
}

func (g *Generator) expandFileList(record *models.CanonicalRequestRecord) ([]models.InvocationPayload, error) {
	req := record.Request

	// Validation already excludes empty lists; kept as a defensive check
	// so a hand-built record cannot slip through as a silent no-op.
	if len(req.Filenames) == 0 {
		return nil, apperrors.NewEmptyExpansionError(fmt.Sprintf("record %s has an empty filename list", record.Key))
	}

	payloads := make([]models.InvocationPayload, 0, len(req.Filenames))
	for _, name := range req.Filenames {
		payloads = append(payloads, models.InvocationPayload{
			Filename:    name,
			UseDev:      req.UseDev,
			SourceKey:   record.Key,
			Description: req.Description,
		})
	}
	return payloads, nil
}
