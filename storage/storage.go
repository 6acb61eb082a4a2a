package storage

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"

	c "Userdb/common"
)

// DefaultShards is the shard count used by NewStorage.
const DefaultShards = 16

type shard struct {
	mu      sync.RWMutex
	records map[int64]c.Record
}

// Storage keeps records in memory, spread over independently locked shards.
// Operations on one id only lock that id's shard. Records are stored and
// returned by value.
type Storage struct {
	shards []*shard
	seq    atomic.Int64
}

func NewStorage() *Storage {
	return NewShardedStorage(DefaultShards)
}

// NewShardedStorage creates a store with n shards (at least one).
func NewShardedStorage(n int) *Storage {
	if n < 1 {
		n = 1
	}
	s := &Storage{shards: make([]*shard, n)}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[int64]c.Record)}
	}
	return s
}

func (s *Storage) shardFor(id int64) *shard {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	h := fnv.New32a()
	h.Write(buf[:])
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// NextID returns the next identifier, starting at 1. Identifiers are never
// reused, whatever happens to the records.
func (s *Storage) NextID() int64 {
	return s.seq.Add(1)
}

// Insert stores a copy of rec under id, replacing any existing record.
func (s *Storage) Insert(id int64, rec c.Record) {
	rec.ID = id
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.records[id] = rec
}

func (s *Storage) Get(id int64) (c.Record, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[id]
	return rec, ok
}

// GetAll returns a copy of every record. All shards are read-locked together
// so the result reflects a single instant. Order is not defined.
func (s *Storage) GetAll() []c.Record {
	for _, sh := range s.shards {
		sh.mu.RLock()
	}
	defer func() {
		for _, sh := range s.shards {
			sh.mu.RUnlock()
		}
	}()

	n := 0
	for _, sh := range s.shards {
		n += len(sh.records)
	}
	out := make([]c.Record, 0, n)
	for _, sh := range s.shards {
		for _, rec := range sh.records {
			out = append(out, rec)
		}
	}
	return out
}

// Remove deletes id and returns the record it held.
func (s *Storage) Remove(id int64) (c.Record, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.records[id]
	if ok {
		delete(sh.records, id)
	}
	return rec, ok
}

// Update applies mutate to the record under id while holding its shard's
// write lock and returns the values it had before. The id cannot be changed.
func (s *Storage) Update(id int64, mutate func(*c.Record)) (c.Record, bool) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	prev, ok := sh.records[id]
	if !ok {
		return c.Record{}, false
	}
	next := prev
	mutate(&next)
	next.ID = id
	sh.records[id] = next
	return prev, true
}

func (s *Storage) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.records)
		sh.mu.RUnlock()
	}
	return n
}
