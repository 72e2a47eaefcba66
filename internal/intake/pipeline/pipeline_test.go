// internal/intake/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reprocess-intake/internal/catalog"
	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/validation"
	"reprocess-intake/internal/intake/archive"
	"reprocess-intake/internal/intake/dispatch"
	"reprocess-intake/internal/intake/expand"
	"reprocess-intake/internal/intake/validator"
	"reprocess-intake/internal/models"
	"reprocess-intake/pkg/registry"
)

// ==========================
// Test Helper Functions
// ==========================

// recordingInvoker accepts everything and remembers what it saw.
type recordingInvoker struct {
	mu       sync.Mutex
	payloads []models.InvocationPayload
	fail     func(models.InvocationPayload) error
}

func (r *recordingInvoker) Invoke(_ context.Context, payload models.InvocationPayload) error {
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	if r.fail != nil {
		return r.fail(payload)
	}
	return nil
}

func testRegistry() *registry.InstrumentRegistry {
	return &registry.InstrumentRegistry{
		Instruments: []registry.Instrument{
			{ID: "meddea", DisplayName: "MeDDEA", OperationalStart: "20240101", Levels: []string{"l0", "l1"}, Active: true},
		},
	}
}

func newTestPipeline(t *testing.T, invoker dispatch.Invoker) *Pipeline {
	t.Helper()
	log := logger.NewTestLogger(t)
	reg := testRegistry()

	v, err := validator.New("../../../schemas/request-schema.json", reg, log)
	require.NoError(t, err)

	store := archive.NewStore(t.TempDir(), archive.NewMemoryReservation(), log)

	boundary := catalog.NewRegistryBoundary(reg)
	boundary.Now = func() time.Time {
		return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	}
	gen := expand.NewGenerator(boundary, log)

	disp := dispatch.New(invoker, 3, time.Millisecond, time.Second, log)

	return New(v, store, gen, disp, 4, log)
}

func testSubmission() models.SubmissionContext {
	return models.SubmissionContext{Submitter: "volker-h", Timestamp: "20240115093045"}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestProcess_SingleDateRange(t *testing.T) {
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)

	raw := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240107"}]}`)
	report, err := p.Process(context.Background(), raw, testSubmission())
	require.NoError(t, err)

	require.Len(t, report.Items, 1)
	item := report.Items[0]
	assert.Equal(t, models.ItemProcessed, item.Status)
	assert.Equal(t, "2024/01/request_volker-h_20240115093045.json", item.CanonicalKey)
	require.Len(t, item.Dispatches, 3)

	// Report order matches expansion order regardless of dispatch timing.
	assert.Equal(t, "20240105", item.Dispatches[0].Payload.Date)
	assert.Equal(t, "20240106", item.Dispatches[1].Payload.Date)
	assert.Equal(t, "20240107", item.Dispatches[2].Payload.Date)

	assert.Equal(t, 3, report.Accepted())
	assert.Equal(t, 0, report.Failed())
	assert.Equal(t, 0, report.FailedItems())
	assert.NotEmpty(t, report.SubmissionID)
}

func TestProcess_FailureContainment(t *testing.T) {
	// An invalid item is reported and skipped; its valid siblings are
	// archived and dispatched normally.
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)

	raw := []byte(`{"requests":[
		{"request_instrument":"magnetometer"},
		{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240105"},
		{"request_filenames":["padre_meddea_l0_20240105_v1.fits"]}
	]}`)
	report, err := p.Process(context.Background(), raw, testSubmission())
	require.NoError(t, err)
	require.Len(t, report.Items, 3)

	bad := report.Items[0]
	assert.Equal(t, models.ItemValidationFailed, bad.Status)
	require.NotEmpty(t, bad.ValidationErrors)
	assert.Equal(t, validation.CodeUnknownInstrument, bad.ValidationErrors[0].Code)
	assert.Empty(t, bad.CanonicalKey)
	assert.Empty(t, bad.Dispatches)

	assert.Equal(t, models.ItemProcessed, report.Items[1].Status)
	assert.Equal(t, models.ItemProcessed, report.Items[2].Status)

	// Failed items never reach the archive key namespace: sibling indices
	// keep their submission positions.
	assert.Equal(t, "2024/01/request_volker-h_20240115093045_1.json", report.Items[1].CanonicalKey)
	assert.Equal(t, "2024/01/request_volker-h_20240115093045_2.json", report.Items[2].CanonicalKey)

	assert.Equal(t, 2, report.Accepted())
	assert.Equal(t, 1, report.FailedItems())
}

func TestProcess_EmptyExpansionReported(t *testing.T) {
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)

	// From date past the pinned "today": validates, archives, expands to
	// zero days.
	raw := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240111"}]}`)
	report, err := p.Process(context.Background(), raw, testSubmission())
	require.NoError(t, err)

	item := report.Items[0]
	assert.Equal(t, models.ItemEmptyExpansion, item.Status)
	assert.NotEmpty(t, item.Error)
	assert.Empty(t, item.Dispatches)
	assert.Empty(t, inv.payloads)
}

func TestProcess_CollisionReported(t *testing.T) {
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)
	sub := testSubmission()

	first := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240105"}]}`)
	_, err := p.Process(context.Background(), first, sub)
	require.NoError(t, err)

	// A different submission claiming the same submitter/timestamp pair.
	second := []byte(`{"requests":[{"request_filenames":["other.fits"]}]}`)
	report, err := p.Process(context.Background(), second, sub)
	require.NoError(t, err)

	item := report.Items[0]
	assert.Equal(t, models.ItemCollision, item.Status)
	assert.Contains(t, item.Error, string(apperrors.ErrCodeCollision))
	assert.Empty(t, item.Dispatches)
}

func TestProcess_IdempotentRerun(t *testing.T) {
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)
	sub := testSubmission()

	raw := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240105"}]}`)

	first, err := p.Process(context.Background(), raw, sub)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), raw, sub)
	require.NoError(t, err)

	// The re-run reuses the archived record instead of colliding.
	assert.Equal(t, models.ItemProcessed, first.Items[0].Status)
	assert.Equal(t, models.ItemProcessed, second.Items[0].Status)
	assert.Equal(t, first.Items[0].CanonicalKey, second.Items[0].CanonicalKey)
}

func TestProcess_PartialDispatchFailure(t *testing.T) {
	inv := &recordingInvoker{
		fail: func(p models.InvocationPayload) error {
			if p.Date == "20240106" {
				return apperrors.NewPayloadRejectedError("malformed body")
			}
			return nil
		},
	}
	p := newTestPipeline(t, inv)

	raw := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240107"}]}`)
	report, err := p.Process(context.Background(), raw, testSubmission())
	require.NoError(t, err)

	item := report.Items[0]
	assert.Equal(t, models.ItemProcessed, item.Status)
	require.Len(t, item.Dispatches, 3)
	assert.Equal(t, models.DispatchAccepted, item.Dispatches[0].Status)
	assert.Equal(t, models.DispatchRejected, item.Dispatches[1].Status)
	assert.Equal(t, models.DispatchAccepted, item.Dispatches[2].Status)

	assert.Equal(t, 2, report.Accepted())
	assert.Equal(t, 1, report.Failed())
}

// ==========================
// Error Handling Tests
// ==========================

func TestProcess_DocumentFatal(t *testing.T) {
	p := newTestPipeline(t, &recordingInvoker{})

	report, err := p.Process(context.Background(), []byte(`{"requests":[`), testSubmission())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestProcess_CancelledContextSkipsDispatch(t *testing.T) {
	inv := &recordingInvoker{}
	p := newTestPipeline(t, inv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := []byte(`{"requests":[{"request_instrument":"meddea","request_from_date":"20240105","request_to_date":"20240107"}]}`)
	report, err := p.Process(ctx, raw, testSubmission())
	require.NoError(t, err)

	// Skipped payloads are reported as failed, never dropped.
	item := report.Items[0]
	require.Len(t, item.Dispatches, 3)
	for _, d := range item.Dispatches {
		assert.Equal(t, models.DispatchFailed, d.Status)
		assert.Contains(t, d.Error, "cancelled")
	}
	assert.Empty(t, inv.payloads)
}
