// Package catalog resolves requested filenames to their stored location
// and supplies the operational boundaries used to close open-ended date
// ranges. Both are injected dependencies of the payload generator and the
// dispatch envelope builder.
package catalog

import (
	"context"
	"path"
	"time"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/pkg/registry"
)

// FileRef locates one science file in object storage.
type FileRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Catalog finds science files by their basename.
type Catalog interface {
	FindFile(ctx context.Context, filename string, useDev bool) (FileRef, error)
}

// Boundary supplies the bounds for open-ended date ranges: the
// instrument's operational start and the current date.
type Boundary interface {
	OperationalStart(instrument string) (time.Time, error)
	Today() time.Time
}

// RegistryBoundary resolves boundaries from the instrument registry and
// an injectable clock.
type RegistryBoundary struct {
	Registry *registry.InstrumentRegistry
	Now      func() time.Time
}

func NewRegistryBoundary(reg *registry.InstrumentRegistry) *RegistryBoundary {
	return &RegistryBoundary{Registry: reg, Now: time.Now}
}

func (b *RegistryBoundary) OperationalStart(instrument string) (time.Time, error) {
	inst, ok := b.Registry.Lookup(instrument)
	if !ok {
		return time.Time{}, apperrors.NewValidationFailedError("unknown instrument: " + instrument)
	}
	return inst.OperationalStartDate()
}

func (b *RegistryBoundary) Today() time.Time {
	t := b.Now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StaticCatalog serves lookups from a fixed file list. Used in tests and
// for dry runs without an Elasticsearch index.
type StaticCatalog struct {
	Bucket    string
	DevBucket string
	Files     []string // object keys
}

func (c *StaticCatalog) FindFile(_ context.Context, filename string, useDev bool) (FileRef, error) {
	bucket := c.Bucket
	if useDev {
		bucket = c.DevBucket
	}
	for _, key := range c.Files {
		if path.Base(key) == filename {
			return FileRef{Bucket: bucket, Key: key}, nil
		}
	}
	return FileRef{}, apperrors.NewFileNotInCatalogError(filename)
}
