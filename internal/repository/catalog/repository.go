package catalog

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

var repoTracer = otel.Tracer("github.com/supermilas/ordercore/repository/catalog")

// ErrVariantUnavailable is returned when no visible product carries an
// active variant with the requested name at the branch.
var ErrVariantUnavailable = errors.New("variant not available")

// VariantSnapshot is the authoritative point-in-time view of a purchasable
// variant used to freeze order line items.
type VariantSnapshot struct {
	ProductID    int64
	ProductTitle string
	VariantName  string
	Price        float64
}

// Repository reads catalog data. The order core never writes here.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a read-only catalog repository.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// FindVisibleVariant resolves a product variant eligible for ordering at the
// branch: the product must be visible and offered there, the variant active
// with an exact name match. Returns ErrVariantUnavailable otherwise.
func (r *Repository) FindVisibleVariant(ctx context.Context, productID int64, variantName, branchCode string) (VariantSnapshot, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.FindVisibleVariant", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.String("variant.name", variantName),
		attribute.String("branch.code", branchCode),
	))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).
		Where("id = ?", productID).
		Where("visible = TRUE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "product not visible")
		return VariantSnapshot{}, ErrVariantUnavailable
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return VariantSnapshot{}, err
	}

	if !product.AvailableIn(branchCode) {
		span.SetStatus(codes.Error, "not offered at branch")
		return VariantSnapshot{}, ErrVariantUnavailable
	}

	variant, ok := product.ActiveVariant(variantName)
	if !ok {
		span.SetStatus(codes.Error, "variant inactive or missing")
		return VariantSnapshot{}, ErrVariantUnavailable
	}

	return VariantSnapshot{
		ProductID:    product.ID,
		ProductTitle: product.Title,
		VariantName:  variant.Name,
		Price:        variant.Price,
	}, nil
}
