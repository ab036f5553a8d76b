// Package sequence mints per-branch-per-day order numbers in the wire format
// {BRANCH}-{YYYYMMDD}-{SEQ4}, e.g. RES-20251007-0001.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxDailySequence is the largest value the 4-digit suffix can carry. A
// branch exceeding it in one day fails loudly instead of truncating.
const MaxDailySequence = 9999

// ErrSequenceExhausted is returned when a branch-day key runs past 9999.
var ErrSequenceExhausted = errors.New("daily order sequence exhausted")

// CounterStore atomically increments a keyed counter in shared storage,
// creating it at zero on first use. The increment-and-read must be a single
// operation; the generator never reads then writes.
type CounterStore interface {
	Increment(ctx context.Context, key string) (int64, error)
}

// Generator produces order numbers backed by a CounterStore.
type Generator struct {
	store CounterStore
}

// NewGenerator wires a Generator over the given store.
func NewGenerator(store CounterStore) *Generator {
	return &Generator{store: store}
}

// CounterKey builds the storage key for a branch-day bucket.
func CounterKey(branchCode string, at time.Time) string {
	return fmt.Sprintf("%s-%04d-%02d-%02d", branchCode, at.Year(), int(at.Month()), at.Day())
}

// Format renders a sequence value as an order number.
func Format(branchCode string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", branchCode, at.Format("20060102"), seq)
}

// Next mints the next order number for the branch at the given time. Two
// concurrent calls on the same branch-day never yield the same number. On
// storage failure the error propagates; a number is never fabricated.
func (g *Generator) Next(ctx context.Context, branchCode string, at time.Time) (string, error) {
	seq, err := g.store.Increment(ctx, CounterKey(branchCode, at))
	if err != nil {
		return "", fmt.Errorf("increment order sequence: %w", err)
	}
	if seq > MaxDailySequence {
		return "", fmt.Errorf("%w: branch %s reached %d", ErrSequenceExhausted, branchCode, seq)
	}
	return Format(branchCode, at, seq), nil
}
