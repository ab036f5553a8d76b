package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/supermilas/ordercore/internal/database"
	"github.com/supermilas/ordercore/internal/dto"
	"github.com/supermilas/ordercore/internal/entity"
)

var repoTracer = otel.Tracer("github.com/supermilas/ordercore/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrStaleState is returned when a conditional state update matched no row:
// a concurrent transition already moved the order past the expected state.
var ErrStaleState = errors.New("order state changed concurrently")

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order using the write connection. The orders table
// carries a unique constraint on number; a violation surfaces as an error
// and is never retried here.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// UpdateState persists a transition with an atomic conditional update: the
// row is written only while it still holds the expected source state, so a
// lost-update race cannot apply two transitions from the same source.
func (r *Repository) UpdateState(ctx context.Context, order *entity.Order, from entity.State) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateState", trace.WithAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.String("order.state.from", string(from)),
		attribute.String("order.state.to", string(order.State)),
	))
	defer span.End()

	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}

	res, err := r.writer.NewUpdate().
		Model(order).
		Column("state", "state_history", "estimated_minutes", "updated_at").
		Where("id = ?", order.ID).
		Where("state = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "stale state")
		return ErrStaleState
	}
	return nil
}

// List returns orders matching the filter, most recent first, bounded by
// the filter limit.
func (r *Repository) List(ctx context.Context, filter dto.ListFilter) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(attribute.String("order.branch", filter.BranchCode)))
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Order)(nil))
	if filter.BranchCode != "" {
		q = q.Where("branch_code = ?", filter.BranchCode)
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var orders []entity.Order
	if err := q.Order("created_at DESC").Limit(limit).Scan(ctx, &orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}
