package catalog

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogrepo "github.com/supermilas/ordercore/internal/repository/catalog"
)

// Module provides the catalog resolver to Fx.
var Module = fx.Provide(func(repo *catalogrepo.Repository, logger *zap.Logger) *Resolver {
	return NewResolver(repo, logger)
})
