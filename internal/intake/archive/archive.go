// Package archive canonicalizes accepted request items into the
// year/month archive layout and guards its key namespace against
// collisions. A key is derived from the submitter identity and the
// submission timestamp, never from dates inside the request.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/common/metrics"
	"reprocess-intake/internal/models"
)

// Store files canonical request records under Root using keys of the
// form {year}/{month}/request_{submitter}_{timestamp}[_{index}].json.
type Store struct {
	root   string
	res    Reservation
	logger logger.Logger
}

func NewStore(root string, res Reservation, log logger.Logger) *Store {
	return &Store{
		root:   root,
		res:    res,
		logger: log.WithFields(map[string]interface{}{"component": "archive"}),
	}
}

// Key computes the canonical storage key for one item. All items of a
// submission share submitter and second-resolution timestamp, so every
// item after the first takes its submission index as a suffix. The rule
// is deterministic: re-running a submission recomputes identical keys.
func Key(sub models.SubmissionContext, index int) string {
	name := fmt.Sprintf("request_%s_%s", sub.Submitter, sub.Timestamp)
	if index > 0 {
		name = fmt.Sprintf("%s_%d", name, index)
	}
	return fmt.Sprintf("%s/%s/%s.json", sub.Year(), sub.Month(), name)
}

// Canonicalize assigns the item its canonical key and persists the
// record. Outcomes:
//
//   - fresh key: record written atomically (temp file + rename), returned.
//   - key held by an identical prior run: idempotent skip, existing
//     record returned unchanged.
//   - key held by a distinct request: COLLISION error, existing file
//     untouched.
func (s *Store) Canonicalize(ctx context.Context, item models.RequestItem, index int, sub models.SubmissionContext) (*models.CanonicalRequestRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	key := Key(sub, index)
	record := &models.CanonicalRequestRecord{
		Request:   item,
		Key:       key,
		Submitter: sub.Submitter,
		Timestamp: sub.Timestamp,
		Index:     index,
	}

	target := filepath.Join(s.root, filepath.FromSlash(key))

	// A file already at the target is either this item from an earlier
	// (partially completed) run, or a genuine collision.
	if existing, err := s.readRecord(target); err == nil {
		if sameRecord(existing, record) {
			s.logger.Info("request already archived, skipping", map[string]interface{}{
				"key": key,
			})
			return existing, nil
		}
		metrics.RequestsArchived.WithLabelValues("collision").Inc()
		return nil, apperrors.NewCollisionError(key)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("inspect archive target %s: %w", target, err)
	}

	ok, err := s.res.Reserve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reserve key %s: %w", key, err)
	}
	if !ok {
		// Reserved by a concurrent canonicalization that has not written
		// its file yet. Never overwrite.
		metrics.RequestsArchived.WithLabelValues("collision").Inc()
		return nil, apperrors.NewCollisionError(key)
	}

	if err := s.writeRecord(target, record); err != nil {
		return nil, err
	}

	metrics.RequestsArchived.WithLabelValues("archived").Inc()
	s.logger.Info("request archived", map[string]interface{}{
		"key":       key,
		"submitter": sub.Submitter,
		"index":     index,
	})
	return record, nil
}

// writeRecord persists the record atomically: a rename either installs
// the complete file at the canonical path or leaves nothing behind.
func (s *Store) writeRecord(target string, record *models.CanonicalRequestRecord) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create archive partition: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".intake-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close record: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install record at %s: %w", target, err)
	}
	return nil
}

func (s *Store) readRecord(path string) (*models.CanonicalRequestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec models.CanonicalRequestRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// sameRecord reports whether the archived record is this exact item from
// an earlier run of the same submission.
func sameRecord(a, b *models.CanonicalRequestRecord) bool {
	return a.Submitter == b.Submitter &&
		a.Timestamp == b.Timestamp &&
		a.Index == b.Index &&
		reflect.DeepEqual(a.Request, b.Request)
}

// ClearIntake removes the raw submission file once every item of the
// submission reached a terminal state. Missing files are fine: a retried
// run may have cleared it already.
func (s *Store) ClearIntake(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear intake file %s: %w", path, err)
	}
	return nil
}
