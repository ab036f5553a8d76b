package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/supermilas/ordercore/internal/database"
	"github.com/supermilas/ordercore/internal/entity"
)

var repoTracer = otel.Tracer("github.com/supermilas/ordercore/repository/sequence")

// Repository implements the atomic counter over the relational store. The
// upsert-increment is one statement so concurrent callers across processes
// can never observe the same value.
type Repository struct {
	writer *bun.DB
}

// NewRepository wires the counter repository to the write connection. The
// increment statement relies on ON CONFLICT .. DO UPDATE .. RETURNING, which
// mysql does not speak; refusing the dialect up front beats failing on the
// first order.
func NewRepository(conns *database.Connections) (*Repository, error) {
	if name := conns.Writer.Dialect().Name(); name == dialect.MySQL {
		return nil, fmt.Errorf("sequence counters require ON CONFLICT upsert support; unsupported dialect %s", name)
	}
	return &Repository{writer: conns.Writer}, nil
}

// Increment bumps the counter for key by one and returns the new value,
// creating the row with value 1 on first use.
func (r *Repository) Increment(ctx context.Context, key string) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "SequenceRepository.Increment", trace.WithAttributes(attribute.String("counter.key", key)))
	defer span.End()

	counter := &entity.SequenceCounter{Key: key, Seq: 1, CreatedAt: time.Now().UTC()}
	err := r.writer.NewInsert().
		Model(counter).
		Column("key", "seq", "created_at").
		On("CONFLICT (key) DO UPDATE").
		Set("seq = sequence_counters.seq + 1").
		Set("updated_at = CURRENT_TIMESTAMP").
		Returning("seq").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return 0, err
	}
	return counter.Seq, nil
}
