package catalog

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/dto"
	"github.com/supermilas/ordercore/internal/entity"
	catalogrepo "github.com/supermilas/ordercore/internal/repository/catalog"
	"github.com/supermilas/ordercore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/supermilas/ordercore/service/catalog")

// VariantFinder resolves the authoritative view of a purchasable variant.
type VariantFinder interface {
	FindVisibleVariant(ctx context.Context, productID int64, variantName, branchCode string) (catalogrepo.VariantSnapshot, error)
}

// Resolver hydrates raw cart lines into frozen order line items. It is
// read-only: hydration never mutates catalog state.
type Resolver struct {
	finder VariantFinder
	logger *zap.Logger
}

// NewResolver wires a Resolver over a variant finder.
func NewResolver(finder VariantFinder, logger *zap.Logger) *Resolver {
	return &Resolver{finder: finder, logger: logger}
}

// Hydrate resolves every cart line against the live catalog, all-or-nothing:
// one invalid line fails the whole cart and identifies the offending line.
// Duplicate product ids across lines are resolved independently. Returned
// items snapshot current title and price; later catalog changes never
// retroactively affect them.
func (r *Resolver) Hydrate(ctx context.Context, branchCode string, lines []dto.CartLine) ([]entity.OrderItem, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogResolver.Hydrate", trace.WithAttributes(
		attribute.String("branch.code", branchCode),
		attribute.Int("cart.lines", len(lines)),
	))
	defer span.End()

	if len(lines) == 0 {
		return nil, errorbank.BadRequest("cart must contain at least one item")
	}

	items := make([]entity.OrderItem, 0, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, invalidLine(i, line, "quantity must be at least 1")
		}
		if line.VariantName == "" {
			return nil, invalidLine(i, line, "variant name is required")
		}

		snapshot, err := r.finder.FindVisibleVariant(ctx, line.ProductID, line.VariantName, branchCode)
		if errors.Is(err, catalogrepo.ErrVariantUnavailable) {
			span.SetStatus(codes.Error, "invalid cart line")
			return nil, invalidLine(i, line, "product or variant not available")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog read failed")
			return nil, errorbank.Unavailable("catalog unavailable", errorbank.WithCause(err))
		}

		items = append(items, entity.OrderItem{
			ProductID:    snapshot.ProductID,
			ProductTitle: snapshot.ProductTitle,
			VariantName:  snapshot.VariantName,
			Quantity:     line.Quantity,
			UnitPrice:    snapshot.Price,
			Notes:        line.Notes,
		})
	}

	return items, nil
}

func invalidLine(index int, line dto.CartLine, reason string) error {
	return errorbank.Unprocessable("invalid cart line",
		errorbank.WithDetail("line", index),
		errorbank.WithDetail("product_id", line.ProductID),
		errorbank.WithDetail("variant_name", line.VariantName),
		errorbank.WithDetail("reason", reason),
	)
}
