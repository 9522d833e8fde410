package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCache = []byte("cache")

type boltEnvelope struct {
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 means no expiry
	Payload   []byte `json:"payload"`
}

// Bolt is a Cache persisted in a bbolt database, so cached discovery
// survives process restarts.
type Bolt struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the cache database under dir.
func OpenBolt(dir string) (*Bolt, error) {
	dbPath := filepath.Join(dir, "tagvet-cache.db")

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}

	return &Bolt{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Get(key string) ([]byte, bool) {
	var env boltEnvelope
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketCache).Get([]byte(key))
		if raw == nil {
			return errMiss
		}
		return json.Unmarshal(raw, &env)
	})
	if err != nil {
		return nil, false
	}

	if env.ExpiresAt > 0 && b.now().Unix() > env.ExpiresAt {
		_ = b.Delete(key)
		return nil, false
	}
	return env.Payload, true
}

func (b *Bolt) Set(key string, value []byte, ttl time.Duration) error {
	env := boltEnvelope{Payload: value}
	if ttl > 0 {
		env.ExpiresAt = b.now().Add(ttl).Unix()
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), raw)
	})
}

func (b *Bolt) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Delete([]byte(key))
	})
}

var errMiss = fmt.Errorf("cache miss")

var _ Cache = (*Bolt)(nil)
