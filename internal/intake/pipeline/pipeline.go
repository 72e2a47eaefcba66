// Package pipeline wires the intake stages together: validation,
// canonicalization, expansion and dispatch run strictly in that order
// for each request item, while items of one submission are processed
// independently so one failing item never aborts its siblings.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/metrics"
	"reprocess-intake/internal/common/validation"
	"reprocess-intake/internal/intake/archive"
	"reprocess-intake/internal/intake/dispatch"
	"reprocess-intake/internal/intake/expand"
	"reprocess-intake/internal/intake/validator"
	"reprocess-intake/internal/models"

	apperrors "reprocess-intake/internal/common/errors"
)

type Pipeline struct {
	validator   *validator.Validator
	store       *archive.Store
	generator   *expand.Generator
	dispatcher  *dispatch.Dispatcher
	maxParallel int
	logger      logger.Logger
}

func New(v *validator.Validator, store *archive.Store, gen *expand.Generator, disp *dispatch.Dispatcher, maxParallel int, log logger.Logger) *Pipeline {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Pipeline{
		validator:   v,
		store:       store,
		generator:   gen,
		dispatcher:  disp,
		maxParallel: maxParallel,
		logger:      log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Process runs one submission end to end and returns the aggregate
// report. The returned error is non-nil only when the document itself is
// unusable; every other failure is scoped to its item or payload and
// reported, never swallowed.
func (p *Pipeline) Process(ctx context.Context, raw []byte, sub models.SubmissionContext) (*models.SubmissionReport, error) {
	doc, itemErrors, err := p.validator.Validate(raw)
	if err != nil {
		return nil, err
	}

	failedByIndex := make(map[int]validation.ItemErrors, len(itemErrors))
	for _, ie := range itemErrors {
		failedByIndex[ie.Index] = ie
	}

	report := &models.SubmissionReport{
		SubmissionID: uuid.NewString(),
		Submitter:    sub.Submitter,
		Timestamp:    sub.Timestamp,
		Items:        make([]models.ItemReport, len(doc.Requests)),
	}

	for i := range doc.Requests {
		report.Items[i] = p.processItem(ctx, doc.Requests[i], i, sub, failedByIndex)
	}

	p.logger.Info("submission processed", map[string]interface{}{
		"submissionId": report.SubmissionID,
		"items":        len(report.Items),
		"failedItems":  report.FailedItems(),
		"accepted":     report.Accepted(),
		"failed":       report.Failed(),
	})
	return report, nil
}

func (p *Pipeline) processItem(ctx context.Context, item models.RequestItem, index int, sub models.SubmissionContext, failed map[int]validation.ItemErrors) models.ItemReport {
	ir := models.ItemReport{Index: index}

	if ie, bad := failed[index]; bad {
		metrics.RequestItemsValidated.WithLabelValues("invalid").Inc()
		ir.Status = models.ItemValidationFailed
		ir.ValidationErrors = ie.Errors
		return ir
	}
	metrics.RequestItemsValidated.WithLabelValues("valid").Inc()

	record, err := p.store.Canonicalize(ctx, item, index, sub)
	if err != nil {
		ir.Error = err.Error()
		if apperrors.CodeOf(err) == apperrors.ErrCodeCollision {
			ir.Status = models.ItemCollision
		} else {
			ir.Status = models.ItemValidationFailed
		}
		return ir
	}
	ir.CanonicalKey = record.Key

	payloads, err := p.generator.Expand(record)
	if err != nil {
		ir.Status = models.ItemEmptyExpansion
		ir.Error = err.Error()
		return ir
	}

	ir.Dispatches = p.dispatchAll(ctx, payloads)
	ir.Status = models.ItemProcessed
	return ir
}

// dispatchAll submits every payload of one item, concurrently up to the
// configured bound. Dispatch results are positional: payload order in
// the report matches expansion order regardless of completion order.
// A cancelled context lets in-flight dispatches finish but starts no new
// ones; skipped payloads are reported as failed, not dropped.
func (p *Pipeline) dispatchAll(ctx context.Context, payloads []models.InvocationPayload) []models.DispatchResult {
	results := make([]models.DispatchResult, len(payloads))

	g := new(errgroup.Group)
	g.SetLimit(p.maxParallel)
	var mu sync.Mutex

	for i, payload := range payloads {
		g.Go(func() error {
			var res models.DispatchResult
			if ctx.Err() != nil {
				res = models.DispatchResult{
					Payload: payload,
					Status:  models.DispatchFailed,
					Error:   "submission cancelled before dispatch: " + ctx.Err().Error(),
				}
			} else {
				res = p.dispatcher.Dispatch(ctx, payload)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
