// Package store layers typed, expiring records over a blob.Store. Every
// record kind goes through the same versioned envelope and zstd framing.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// SchemaVersion is the envelope version written by this build.
const SchemaVersion = 1

// ErrSchemaMismatch is returned when a stored envelope was written by an
// incompatible schema version.
var ErrSchemaMismatch = errors.New("store: schema version mismatch")

// Record kinds.
const (
	KindCheckpoint = "checkpoint"
	KindResult     = "result"
	KindBatch      = "batch"
	KindStatus     = "status"
)

type envelope struct {
	Schema    int             `json:"schema"`
	Kind      string          `json:"kind"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	StoredAt  time.Time       `json:"storedAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Shared coders; both are safe for concurrent EncodeAll/DecodeAll.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Encode wraps v in an envelope of the given kind and compresses it. A zero
// expiresAt means the record never expires.
func Encode(kind string, v any, storedAt, expiresAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	env := envelope{Schema: SchemaVersion, Kind: kind, StoredAt: storedAt.UTC(), Payload: payload}
	if !expiresAt.IsZero() {
		e := expiresAt.UTC()
		env.ExpiresAt = &e
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return encoder.EncodeAll(raw, nil), nil
}

// Decoded is an unpacked envelope whose payload has not been unmarshalled yet.
type Decoded struct {
	Kind      string
	StoredAt  time.Time
	ExpiresAt time.Time // zero when the record never expires
	payload   json.RawMessage
}

// Expired reports whether the record is past its expiry at now.
func (d *Decoded) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

// Into unmarshals the payload into v.
func (d *Decoded) Into(v any) error {
	if err := json.Unmarshal(d.payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", d.Kind, err)
	}
	return nil
}

// Decode decompresses and unpacks an envelope, checking its schema and kind.
func Decode(data []byte, wantKind string) (*Decoded, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", wantKind, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchemaMismatch, env.Schema, SchemaVersion)
	}
	if env.Kind != wantKind {
		return nil, fmt.Errorf("envelope kind %q, want %q", env.Kind, wantKind)
	}
	d := &Decoded{Kind: env.Kind, StoredAt: env.StoredAt, payload: env.Payload}
	if env.ExpiresAt != nil {
		d.ExpiresAt = *env.ExpiresAt
	}
	return d, nil
}
