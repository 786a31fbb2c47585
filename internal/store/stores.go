package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pable/rift-rewind/internal/blob"
	"github.com/pable/rift-rewind/internal/model"
)

const (
	DefaultCheckpointTTL = 72 * time.Hour
	DefaultResultTTL     = 7 * 24 * time.Hour
)

// CheckpointStore holds one resumable CheckpointState per identity hash.
type CheckpointStore struct {
	*TTLStore[model.CheckpointState]
}

func NewCheckpointStore(b blob.Store, ttl time.Duration, now func() time.Time) *CheckpointStore {
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	return &CheckpointStore{newTTLStore[model.CheckpointState](b, KindCheckpoint, CheckpointPath, ttl, now)}
}

// Save validates the state, stamps LastUpdatedAt and ExpiresAt from the
// store clock, and writes it. Each save extends the resume window.
func (s *CheckpointStore) Save(ctx context.Context, st *model.CheckpointState) error {
	if err := st.Validate(); err != nil {
		return err
	}
	now := s.now()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	st.LastUpdatedAt = now
	st.ExpiresAt = now.Add(s.ttl)
	return s.write(ctx, st.IdentityHash, *st, now, st.ExpiresAt)
}

// ResultCache holds the finished ResultRecord per identity hash.
type ResultCache struct {
	*TTLStore[model.ResultRecord]
}

func NewResultCache(b blob.Store, ttl time.Duration, now func() time.Time) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{newTTLStore[model.ResultRecord](b, KindResult, ResultPath, ttl, now)}
}

// BatchStore keeps the raw match records of each fetched batch so a resumed
// job can rebuild its accumulator.
type BatchStore struct {
	blobs blob.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewBatchStore(b blob.Store, ttl time.Duration, now func() time.Time) *BatchStore {
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	if now == nil {
		now = time.Now
	}
	return &BatchStore{blobs: b, ttl: ttl, now: now}
}

func (s *BatchStore) Put(ctx context.Context, hash string, n int, matches []model.MatchRecord) error {
	now := s.now()
	data, err := Encode(KindBatch, matches, now, now.Add(s.ttl))
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, BatchPath(hash, n), data); err != nil {
		return fmt.Errorf("put batch %d: %w", n, err)
	}
	return nil
}

// Get returns batch n; a missing batch reads as absent. The stored expiry
// is informational only: batches live as long as the checkpoint counting
// them, and each checkpoint save extends that window past the batch stamp.
func (s *BatchStore) Get(ctx context.Context, hash string, n int) ([]model.MatchRecord, bool, error) {
	data, ok, err := s.blobs.Get(ctx, BatchPath(hash, n))
	if err != nil || !ok {
		return nil, false, err
	}
	d, err := Decode(data, KindBatch)
	if err != nil {
		return nil, false, fmt.Errorf("decode batch %d: %w", n, err)
	}
	var out []model.MatchRecord
	if err := d.Into(&out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// LoadAll reads batches 1..last in order.
func (s *BatchStore) LoadAll(ctx context.Context, hash string, last int) ([]model.MatchRecord, error) {
	var out []model.MatchRecord
	for n := 1; n <= last; n++ {
		b, ok, err := s.Get(ctx, hash, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("batch %d of %d missing", n, last)
		}
		out = append(out, b...)
	}
	return out, nil
}

// DeleteAll removes batches 1..last, ignoring ones already gone.
func (s *BatchStore) DeleteAll(ctx context.Context, hash string, last int) error {
	for n := 1; n <= last; n++ {
		if _, err := s.blobs.Delete(ctx, BatchPath(hash, n)); err != nil {
			return fmt.Errorf("delete batch %d: %w", n, err)
		}
	}
	return nil
}

// StatusStore holds the latest poll document per identity hash. Documents
// live as long as a checkpoint would.
type StatusStore struct {
	*TTLStore[model.StatusDoc]
}

func NewStatusStore(b blob.Store, ttl time.Duration, now func() time.Time) *StatusStore {
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	return &StatusStore{newTTLStore[model.StatusDoc](b, KindStatus, StatusPath, ttl, now)}
}
