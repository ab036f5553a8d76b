package branch

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/supermilas/ordercore/internal/database"
	"github.com/supermilas/ordercore/internal/entity"
)

var repoTracer = otel.Tracer("github.com/supermilas/ordercore/repository/branch")

// ErrNotFound is returned when no active branch matches.
var ErrNotFound = errors.New("branch not found")

// Repository is the read-only branch directory.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a branch directory over the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// IsValidCode reports whether an active branch carries the code.
func (r *Repository) IsValidCode(ctx context.Context, code string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "BranchRepository.IsValidCode", trace.WithAttributes(attribute.String("branch.code", code)))
	defer span.End()

	exists, err := r.reader.NewSelect().
		Model((*entity.Branch)(nil)).
		Where("code = ?", code).
		Where("active = TRUE").
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, err
	}
	return exists, nil
}

// ResolveBySlug maps a public branch slug to the internal branch code.
func (r *Repository) ResolveBySlug(ctx context.Context, slug string) (string, error) {
	ctx, span := repoTracer.Start(ctx, "BranchRepository.ResolveBySlug", trace.WithAttributes(attribute.String("branch.slug", slug)))
	defer span.End()

	b := new(entity.Branch)
	err := r.reader.NewSelect().Model(b).
		Column("code").
		Where("slug = ?", slug).
		Where("active = TRUE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return "", err
	}
	return b.Code, nil
}

// List returns all active branches.
func (r *Repository) List(ctx context.Context) ([]entity.Branch, error) {
	ctx, span := repoTracer.Start(ctx, "BranchRepository.List")
	defer span.End()

	var branches []entity.Branch
	err := r.reader.NewSelect().Model(&branches).
		Where("active = TRUE").
		Order("code ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return branches, nil
}
