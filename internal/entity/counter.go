package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// SequenceCounter holds the monotone per-branch-per-day order sequence.
// Rows are created lazily on first use and only ever incremented; date
// rollover starts a fresh key.
type SequenceCounter struct {
	bun.BaseModel `bun:"table:sequence_counters"`

	ID        int64     `bun:",pk,autoincrement"`
	Key       string    `bun:"key"`
	Seq       int64     `bun:"seq"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}
