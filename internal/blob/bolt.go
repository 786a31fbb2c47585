package blob

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// BoltStore keeps blobs in one bbolt bucket keyed by path.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketBlobs)
		return createErr
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create blobs bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(_ context.Context, path string, data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Put([]byte(path), data); err != nil {
			return fmt.Errorf("put blob %s: %w", path, err)
		}
		return nil
	})
}

func (s *BoltStore) Get(_ context.Context, path string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// bbolt values are only valid inside the transaction.
		if v := tx.Bucket(bucketBlobs).Get([]byte(path)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", path, err)
	}
	return out, out != nil, nil
}

func (s *BoltStore) Delete(_ context.Context, path string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		existed = b.Get([]byte(path)) != nil
		return b.Delete([]byte(path))
	})
	if err != nil {
		return false, fmt.Errorf("delete blob %s: %w", path, err)
	}
	return existed, nil
}

func (s *BoltStore) Exists(_ context.Context, path string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketBlobs).Get([]byte(path)) != nil
		return nil
	})
	return ok, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
