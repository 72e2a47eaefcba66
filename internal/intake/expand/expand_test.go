// internal/intake/expand/expand_test.go
package expand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reprocess-intake/internal/catalog"
	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/models"
	"reprocess-intake/pkg/registry"
)

// ==========================
// Test Helper Functions
// ==========================

func testBoundary() catalog.Boundary {
	reg := &registry.InstrumentRegistry{
		Instruments: []registry.Instrument{
			{ID: "meddea", OperationalStart: "20240101", Levels: []string{"l0", "l1"}},
		},
	}
	b := catalog.NewRegistryBoundary(reg)
	// Pin "today" so open-ended ranges are reproducible.
	b.Now = func() time.Time {
		return time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
	}
	return b
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(testBoundary(), logger.NewTestLogger(t))
}

func record(item models.RequestItem) *models.CanonicalRequestRecord {
	return &models.CanonicalRequestRecord{
		Request:   item,
		Key:       "2024/01/request_volker-h_20240115093045.json",
		Submitter: "volker-h",
		Timestamp: "20240115093045",
	}
}

func dates(payloads []models.InvocationPayload) []string {
	out := make([]string, len(payloads))
	for i, p := range payloads {
		out[i] = p.Date
	}
	return out
}

// ==========================
// Date Range Expansion Tests
// ==========================

func TestExpand_DateRange(t *testing.T) {
	g := newTestGenerator(t)

	payloads, err := g.Expand(record(models.RequestItem{
		Instrument:  "meddea",
		FromDate:    "20240105",
		ToDate:      "20240107",
		FromLevel:   "l1",
		Description: "recalibration",
	}))
	require.NoError(t, err)
	require.Len(t, payloads, 3)

	// One payload per day, ascending, both endpoints included.
	assert.Equal(t, []string{"20240105", "20240106", "20240107"}, dates(payloads))
	for _, p := range payloads {
		assert.Equal(t, "meddea", p.Instrument)
		assert.Equal(t, "l1", p.FromLevel)
		assert.Equal(t, "recalibration", p.Description)
		assert.Equal(t, "2024/01/request_volker-h_20240115093045.json", p.SourceKey)
		assert.Empty(t, p.Filename)
	}
}

func TestExpand_SingleDay(t *testing.T) {
	g := newTestGenerator(t)

	payloads, err := g.Expand(record(models.RequestItem{
		Instrument: "meddea",
		FromDate:   "20240105",
		ToDate:     "20240105",
	}))
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "20240105", payloads[0].Date)
}

func TestExpand_DefaultLevel(t *testing.T) {
	g := newTestGenerator(t)

	payloads, err := g.Expand(record(models.RequestItem{
		Instrument: "meddea",
		FromDate:   "20240105",
		ToDate:     "20240105",
	}))
	require.NoError(t, err)
	assert.Equal(t, "l0", payloads[0].FromLevel)
}

func TestExpand_OpenEndedBounds(t *testing.T) {
	tests := []struct {
		name      string
		item      models.RequestItem
		wantFirst string
		wantLast  string
		wantCount int
	}{
		{
			name:      "missing from date falls back to operational start",
			item:      models.RequestItem{Instrument: "meddea", ToDate: "20240103"},
			wantFirst: "20240101",
			wantLast:  "20240103",
			wantCount: 3,
		},
		{
			name:      "missing to date falls back to today",
			item:      models.RequestItem{Instrument: "meddea", FromDate: "20240108"},
			wantFirst: "20240108",
			wantLast:  "20240110",
			wantCount: 3,
		},
		{
			name:      "both missing spans operational start to today",
			item:      models.RequestItem{Instrument: "meddea"},
			wantFirst: "20240101",
			wantLast:  "20240110",
			wantCount: 10,
		},
	}

	g := newTestGenerator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloads, err := g.Expand(record(tt.item))
			require.NoError(t, err)
			require.Len(t, payloads, tt.wantCount)
			assert.Equal(t, tt.wantFirst, payloads[0].Date)
			assert.Equal(t, tt.wantLast, payloads[len(payloads)-1].Date)
		})
	}
}

// ==========================
// File List Expansion Tests
// ==========================

func TestExpand_FileList(t *testing.T) {
	g := newTestGenerator(t)

	payloads, err := g.Expand(record(models.RequestItem{
		Filenames: []string{"padre_meddea_l0_20240105_v1.fits", "padre_meddea_l0_20240106_v1.fits"},
		UseDev:    true,
	}))
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	// One payload per filename, list order preserved, no date fields.
	assert.Equal(t, "padre_meddea_l0_20240105_v1.fits", payloads[0].Filename)
	assert.Equal(t, "padre_meddea_l0_20240106_v1.fits", payloads[1].Filename)
	for _, p := range payloads {
		assert.True(t, p.UseDev)
		assert.Empty(t, p.Date)
		assert.Empty(t, p.Instrument)
		assert.Equal(t, "2024/01/request_volker-h_20240115093045.json", p.SourceKey)
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestExpand_EmptyExpansion(t *testing.T) {
	g := newTestGenerator(t)

	// Validation only orders explicit bound pairs; a from date past the
	// pinned "today" resolves to zero days and must fail loudly rather
	// than vanish.
	payloads, err := g.Expand(record(models.RequestItem{Instrument: "meddea", FromDate: "20240111"}))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEmptyExpansion, apperrors.CodeOf(err))
	assert.Nil(t, payloads)
}

func TestExpand_ShapelessRecordFails(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.Expand(record(models.RequestItem{}))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeAmbiguousShape, apperrors.CodeOf(err))
}

func TestExpand_UnknownInstrumentBoundary(t *testing.T) {
	g := newTestGenerator(t)

	// Open-ended from date forces a registry lookup.
	_, err := g.Expand(record(models.RequestItem{Instrument: "magnetometer"}))
	assert.Error(t, err)
}

func TestExpand_Repeatable(t *testing.T) {
	g := newTestGenerator(t)
	rec := record(models.RequestItem{Instrument: "meddea", FromDate: "20240105", ToDate: "20240107"})

	first, err := g.Expand(rec)
	require.NoError(t, err)
	second, err := g.Expand(rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
