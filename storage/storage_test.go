package storage

import (
	"sync"
	"testing"
	"time"

	c "Userdb/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(first string) c.Record {
	return c.Record{
		FirstName:  first,
		LastName:   "Nowak",
		BirthDate:  c.NewDate(1990, time.January, 1),
		Salary:     15000,
		Gender:     c.Male,
		Department: "IT",
		Position:   "Developer",
	}
}

func TestStorage(t *testing.T) {
	t.Run("new store is empty", func(t *testing.T) {
		s := NewStorage()

		assert.Empty(t, s.GetAll())
		assert.Equal(t, 0, s.Len())

		_, ok := s.Get(1)
		assert.False(t, ok)
	})

	t.Run("insert and get", func(t *testing.T) {
		s := NewStorage()
		s.Insert(7, sample("Adam"))

		rec, ok := s.Get(7)
		require.True(t, ok)
		assert.Equal(t, int64(7), rec.ID)
		assert.Equal(t, "Adam", rec.FirstName)
	})

	t.Run("insert forces id to key", func(t *testing.T) {
		s := NewStorage()
		r := sample("Adam")
		r.ID = 99
		s.Insert(3, r)

		rec, ok := s.Get(3)
		require.True(t, ok)
		assert.Equal(t, int64(3), rec.ID)
		_, ok = s.Get(99)
		assert.False(t, ok)
	})

	t.Run("insert overwrites", func(t *testing.T) {
		s := NewStorage()
		s.Insert(1, sample("Adam"))
		s.Insert(1, sample("Ewa"))

		rec, _ := s.Get(1)
		assert.Equal(t, "Ewa", rec.FirstName)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("remove", func(t *testing.T) {
		s := NewStorage()
		s.Insert(1, sample("Adam"))

		rec, ok := s.Remove(1)
		require.True(t, ok)
		assert.Equal(t, "Adam", rec.FirstName)

		_, ok = s.Remove(1)
		assert.False(t, ok)
		_, ok = s.Get(1)
		assert.False(t, ok)
	})

	t.Run("update returns previous values", func(t *testing.T) {
		s := NewStorage()
		s.Insert(1, sample("Adam"))

		prev, ok := s.Update(1, func(r *c.Record) {
			r.Salary = 17000
			r.ID = 500
		})
		require.True(t, ok)
		assert.Equal(t, 15000.0, prev.Salary)

		rec, _ := s.Get(1)
		assert.Equal(t, 17000.0, rec.Salary)
		assert.Equal(t, int64(1), rec.ID)
	})

	t.Run("update missing id", func(t *testing.T) {
		s := NewStorage()
		called := false
		_, ok := s.Update(4, func(r *c.Record) { called = true })
		assert.False(t, ok)
		assert.False(t, called)
	})

	t.Run("single shard", func(t *testing.T) {
		s := NewShardedStorage(0)
		for i := int64(1); i <= 10; i++ {
			s.Insert(i, sample("Adam"))
		}
		assert.Len(t, s.GetAll(), 10)
	})
}

func TestStorageCopies(t *testing.T) {
	s := NewStorage()
	r := sample("Adam")
	s.Insert(1, r)

	// mutating the caller's value after insert has no effect
	r.FirstName = "Changed"
	got, _ := s.Get(1)
	assert.Equal(t, "Adam", got.FirstName)

	// nor does mutating what Get or GetAll returned
	got.Salary = 1
	all := s.GetAll()
	all[0].Department = "HR"

	again, _ := s.Get(1)
	assert.Equal(t, 15000.0, again.Salary)
	assert.Equal(t, "IT", again.Department)
}

func TestNextIDMonotonic(t *testing.T) {
	s := NewStorage()
	assert.Equal(t, int64(1), s.NextID())
	assert.Equal(t, int64(2), s.NextID())

	s.Insert(3, sample("Adam"))
	s.Remove(3)
	assert.Equal(t, int64(3), s.NextID())
}

func TestConcurrentNextID(t *testing.T) {
	s := NewStorage()
	const workers, perWorker = 16, 200

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := s.NextID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker+1), s.NextID())
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStorage()
	const workers, perWorker = 10, 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := s.NextID()
				s.Insert(id, sample("Adam"))
				s.Update(id, func(r *c.Record) { r.Salary++ })
				_, _ = s.Get(id)
				_ = s.GetAll()
			}
		}()
	}
	wg.Wait()

	all := s.GetAll()
	require.Len(t, all, workers*perWorker)
	ids := make(map[int64]bool)
	for _, r := range all {
		ids[r.ID] = true
		assert.Equal(t, 15001.0, r.Salary)
	}
	assert.Len(t, ids, workers*perWorker)
}

func TestGetAllNeverSeesPartialUpdate(t *testing.T) {
	s := NewStorage()
	s.Insert(1, sample("Adam"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			dep, pos := "A", "A"
			if i%2 == 1 {
				dep, pos = "B", "B"
			}
			s.Update(1, func(r *c.Record) {
				r.Department = dep
				r.Position = pos
			})
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		for _, r := range s.GetAll() {
			if r.Department != "IT" {
				assert.Equal(t, r.Department, r.Position)
			}
		}
	}
}
