package sequence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]int64
	err      error
}

func newMemoryCounterStore() *memoryCounterStore {
	return &memoryCounterStore{counters: make(map[string]int64)}
}

func (s *memoryCounterStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.counters[key]++
	return s.counters[key], nil
}

func TestCounterKey(t *testing.T) {
	at := time.Date(2025, 10, 7, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "RES-2025-10-07", CounterKey("RES", at))

	at = time.Date(2026, 1, 2, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, "COR1-2026-01-02", CounterKey("COR1", at))
}

func TestNextFormatsNumber(t *testing.T) {
	store := newMemoryCounterStore()
	gen := NewGenerator(store)
	at := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)

	number, err := gen.Next(context.Background(), "RES", at)
	require.NoError(t, err)
	assert.Equal(t, "RES-20251007-0001", number)

	number, err = gen.Next(context.Background(), "RES", at)
	require.NoError(t, err)
	assert.Equal(t, "RES-20251007-0002", number)
}

func TestNextIndependentPerBranchAndDay(t *testing.T) {
	store := newMemoryCounterStore()
	gen := NewGenerator(store)
	day1 := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	n1, err := gen.Next(context.Background(), "RES", day1)
	require.NoError(t, err)
	n2, err := gen.Next(context.Background(), "COR1", day1)
	require.NoError(t, err)
	n3, err := gen.Next(context.Background(), "RES", day2)
	require.NoError(t, err)

	assert.Equal(t, "RES-20251007-0001", n1)
	assert.Equal(t, "COR1-20251007-0001", n2)
	assert.Equal(t, "RES-20251008-0001", n3)
}

func TestNextPadsToFourDigits(t *testing.T) {
	store := newMemoryCounterStore()
	at := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	store.counters[CounterKey("RES", at)] = 122

	number, err := NewGenerator(store).Next(context.Background(), "RES", at)
	require.NoError(t, err)
	assert.Equal(t, "RES-20251007-0123", number)
}

func TestNextExhaustsAtDailyLimit(t *testing.T) {
	store := newMemoryCounterStore()
	at := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)
	store.counters[CounterKey("RES", at)] = MaxDailySequence - 1

	gen := NewGenerator(store)

	number, err := gen.Next(context.Background(), "RES", at)
	require.NoError(t, err)
	assert.Equal(t, "RES-20251007-9999", number)

	_, err = gen.Next(context.Background(), "RES", at)
	assert.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestNextPropagatesStorageError(t *testing.T) {
	store := newMemoryCounterStore()
	store.err = errors.New("connection refused")

	number, err := NewGenerator(store).Next(context.Background(), "RES", time.Now())
	assert.Error(t, err)
	assert.Empty(t, number)
}

func TestNextConcurrentCallsYieldDistinctNumbers(t *testing.T) {
	const n = 50
	store := newMemoryCounterStore()
	gen := NewGenerator(store)
	at := time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC)

	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			numbers[i], errs[i] = gen.Next(context.Background(), "RES", at)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	sort.Strings(numbers)
	for i := 0; i < n; i++ {
		assert.Equal(t, Format("RES", at, int64(i+1)), numbers[i])
	}
}
