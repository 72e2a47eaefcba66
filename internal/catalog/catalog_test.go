// internal/catalog/catalog_test.go
package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/pkg/registry"
)

func testRegistry() *registry.InstrumentRegistry {
	return &registry.InstrumentRegistry{
		Instruments: []registry.Instrument{
			{ID: "meddea", OperationalStart: "20240101"},
			{ID: "sharp", OperationalStart: "20230601"},
		},
	}
}

// ==========================
// Static Catalog Tests
// ==========================

func TestStaticCatalog_FindFile(t *testing.T) {
	cat := &StaticCatalog{
		Bucket:    "padre-swsoc-incoming",
		DevBucket: "padre-swsoc-dev",
		Files: []string{
			"meddea/l0/2024/01/padre_meddea_l0_20240105_v1.fits",
			"sharp/l0/2024/01/padre_sharp_l0_20240105_v1.fits",
		},
	}

	tests := []struct {
		name       string
		filename   string
		useDev     bool
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{
			name:       "resolves basename to full key",
			filename:   "padre_meddea_l0_20240105_v1.fits",
			wantBucket: "padre-swsoc-incoming",
			wantKey:    "meddea/l0/2024/01/padre_meddea_l0_20240105_v1.fits",
		},
		{
			name:       "dev flag selects the dev bucket",
			filename:   "padre_sharp_l0_20240105_v1.fits",
			useDev:     true,
			wantBucket: "padre-swsoc-dev",
			wantKey:    "sharp/l0/2024/01/padre_sharp_l0_20240105_v1.fits",
		},
		{
			name:     "unknown file",
			filename: "padre_meddea_l0_20990101_v1.fits",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := cat.FindFile(context.Background(), tt.filename, tt.useDev)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrCodeFileNotInCatalog, apperrors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, ref.Bucket)
			assert.Equal(t, tt.wantKey, ref.Key)
		})
	}
}

// ==========================
// Boundary Tests
// ==========================

func TestRegistryBoundary_OperationalStart(t *testing.T) {
	b := NewRegistryBoundary(testRegistry())

	start, err := b.OperationalStart("meddea")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)

	// Lookup is case-insensitive, matching the validator.
	start, err = b.OperationalStart("SHARP")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), start)

	_, err = b.OperationalStart("magnetometer")
	assert.Error(t, err)
}

func TestRegistryBoundary_Today(t *testing.T) {
	b := NewRegistryBoundary(testRegistry())
	b.Now = func() time.Time {
		return time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC)
	}

	// Today is truncated to a calendar date so range arithmetic stays in
	// whole days.
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), b.Today())
}
