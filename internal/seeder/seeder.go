package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/database"
	"github.com/supermilas/ordercore/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Branches seeds the fixed branch set if missing.
func (s *Seeder) Branches(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []entity.Branch{
		{Code: "RES", Slug: "resistencia", Name: "Resistencia Centro", City: "Resistencia", Active: true, CreatedAt: now, UpdatedAt: now},
		{Code: "COR1", Slug: "corrientes-centro", Name: "Corrientes Centro", City: "Corrientes", Active: true, CreatedAt: now, UpdatedAt: now},
		{Code: "COR2", Slug: "corrientes-norte", Name: "Corrientes Norte", City: "Corrientes", Active: true, CreatedAt: now, UpdatedAt: now},
	}

	for _, sample := range samples {
		branch := sample
		_, err := s.db.NewInsert().Model(&branch).
			On("CONFLICT (code) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded branches", zap.Int("count", len(samples)))
	}
	return nil
}

// Products seeds example catalog entries if they are missing.
func (s *Seeder) Products(ctx context.Context) error {
	now := time.Now().UTC()
	allBranches := []string{"RES", "COR1", "COR2"}
	samples := []entity.Product{
		{
			Title:       "Milanesa común",
			Description: "Milanesa de carne clásica",
			Variants: []entity.Variant{
				{Name: "6 unidades", Price: 4500, Active: true},
				{Name: "12 unidades", Price: 8500, Active: true},
			},
			Branches: allBranches,
			Visible:  true, CreatedAt: now, UpdatedAt: now,
		},
		{
			Title:       "Milanesa napolitana",
			Description: "Con salsa, jamón y queso",
			Variants: []entity.Variant{
				{Name: "6 unidades", Price: 5500, Active: true},
				{Name: "12 unidades", Price: 10500, Active: true},
			},
			Branches: allBranches,
			Visible:  true, CreatedAt: now, UpdatedAt: now,
		},
		{
			Title:       "Empanadas",
			Description: "Docena de empanadas surtidas",
			Variants: []entity.Variant{
				{Name: "docena", Price: 6000, Active: true},
				{Name: "media docena", Price: 3200, Active: true},
			},
			Branches: []string{"RES"},
			Visible:  true, CreatedAt: now, UpdatedAt: now,
		},
	}

	for _, sample := range samples {
		product := sample
		exists, err := s.db.NewSelect().
			Model((*entity.Product)(nil)).
			Where("title = ?", product.Title).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := s.db.NewInsert().Model(&product).Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded products", zap.Int("count", len(samples)))
	}
	return nil
}

// Module provides the seeder to Fx.
var Module = fx.Provide(New)
