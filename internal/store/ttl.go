package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/blob"
)

// TTLStore is a typed Put/Get/Invalidate store with read-time expiry.
// Expired records read as absent and are deleted as a side effect.
type TTLStore[T any] struct {
	blobs blob.Store
	kind  string
	path  func(key string) string
	ttl   time.Duration
	now   func() time.Time
}

func newTTLStore[T any](b blob.Store, kind string, path func(string) string, ttl time.Duration, now func() time.Time) *TTLStore[T] {
	if now == nil {
		now = time.Now
	}
	return &TTLStore[T]{blobs: b, kind: kind, path: path, ttl: ttl, now: now}
}

// TTL is the default lifetime applied by Put.
func (s *TTLStore[T]) TTL() time.Duration { return s.ttl }

// Put stores value under key for ttl; ttl <= 0 uses the store default.
// It returns the expiry that was written.
func (s *TTLStore[T]) Put(ctx context.Context, key string, value T, ttl time.Duration) (time.Time, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	exp := now.Add(ttl)
	return exp, s.write(ctx, key, value, now, exp)
}

func (s *TTLStore[T]) write(ctx context.Context, key string, value T, now, exp time.Time) error {
	data, err := Encode(s.kind, value, now, exp)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, s.path(key), data); err != nil {
		return fmt.Errorf("put %s: %w", s.kind, err)
	}
	return nil
}

// Get returns the live record for key, if any.
func (s *TTLStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	p := s.path(key)
	data, ok, err := s.blobs.Get(ctx, p)
	if err != nil || !ok {
		return zero, false, err
	}
	d, err := Decode(data, s.kind)
	if err != nil {
		return zero, false, fmt.Errorf("decode %s %s: %w", s.kind, key, err)
	}
	if d.Expired(s.now()) {
		if _, err := s.blobs.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("lazy delete of expired record failed")
		} else {
			log.Debug().Str("path", p).Time("expiresAt", d.ExpiresAt).Msg("expired record removed")
		}
		return zero, false, nil
	}
	var v T
	if err := d.Into(&v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Invalidate removes the record for key and reports whether one existed.
func (s *TTLStore[T]) Invalidate(ctx context.Context, key string) (bool, error) {
	ok, err := s.blobs.Delete(ctx, s.path(key))
	if err != nil {
		return false, fmt.Errorf("invalidate %s: %w", s.kind, err)
	}
	return ok, nil
}
