// Package history persists a summary of every completed scan so compliance
// can be tracked over time.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/btree"
	"go.etcd.io/bbolt"

	"github.com/tagvet/tagvet/types"
)

var (
	bucketScans = []byte("scans")
	bucketMeta  = []byte("meta")
)

var keyCurrentSeq = []byte("current_seq")

// Entry is one recorded scan. Entries are append-only and ordered by Seq.
type Entry struct {
	Seq              int64     `json:"seq"`
	RecordedAt       time.Time `json:"recorded_at"`
	CacheKey         string    `json:"cache_key"`
	ComplianceScore  float64   `json:"compliance_score"`
	TotalResources   int       `json:"total_resources"`
	ViolationCount   int       `json:"violation_count"`
	CostGap          float64   `json:"cost_gap"`
	RegionsAttempted int       `json:"regions_attempted"`
	RegionsFailed    int       `json:"regions_failed"`
	Degraded         bool      `json:"degraded"`
}

// Store is the scan history: bbolt on disk, a btree index in memory for
// ordered reads without touching disk.
type Store struct {
	mu         sync.RWMutex
	db         *bbolt.DB
	index      *btree.BTreeG[*Entry]
	currentSeq int64
	now        func() time.Time
}

// Open opens (or creates) the history database under dir.
func Open(dir string) (*Store, error) {
	db, err := bbolt.Open(filepath.Join(dir, "tagvet-history.db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketScans, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init history buckets: %w", err)
	}

	s := &Store{
		db: db,
		index: btree.NewG[*Entry](32, func(a, b *Entry) bool {
			return a.Seq < b.Seq
		}),
		now: time.Now,
	}

	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one completed scan and returns the stored entry.
func (s *Store) Append(result *types.AggregatedResult, req types.ScanRequest) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentSeq++
	entry := Entry{
		Seq:              s.currentSeq,
		RecordedAt:       s.now(),
		CacheKey:         req.CacheKey(),
		ComplianceScore:  result.ComplianceScore,
		TotalResources:   result.TotalResources,
		ViolationCount:   len(result.Violations),
		CostGap:          result.CostGap,
		RegionsAttempted: result.RegionMetadata.Attempted,
		RegionsFailed:    len(result.RegionMetadata.Failed),
		Degraded:         result.RegionMetadata.DiscoveryDegraded,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketScans).Put(seqKey(entry.Seq), raw); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyCurrentSeq, seqKey(entry.Seq))
	})
	if err != nil {
		s.currentSeq--
		return Entry{}, fmt.Errorf("append history entry: %w", err)
	}

	s.index.ReplaceOrInsert(&entry)
	return entry, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, n)
	s.index.Descend(func(e *Entry) bool {
		entries = append(entries, *e)
		return len(entries) < n
	})
	return entries
}

// Range returns entries recorded in [from, to), oldest first.
func (s *Store) Range(from, to time.Time) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	s.index.Ascend(func(e *Entry) bool {
		if e.RecordedAt.Before(from) || !e.RecordedAt.Before(to) {
			return true
		}
		entries = append(entries, *e)
		return true
	})
	return entries
}

// load restores the sequence counter and rebuilds the in-memory index from
// disk.
func (s *Store) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if raw := tx.Bucket(bucketMeta).Get(keyCurrentSeq); raw != nil {
			s.currentSeq = int64(binary.BigEndian.Uint64(raw))
		}
		return tx.Bucket(bucketScans).ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt history entry %x: %w", k, err)
			}
			s.index.ReplaceOrInsert(&entry)
			return nil
		})
	})
}

func seqKey(seq int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}
