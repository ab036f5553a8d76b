package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/supermilas/ordercore/internal/cache"
	"github.com/supermilas/ordercore/internal/config"
	"github.com/supermilas/ordercore/internal/messaging"
	"github.com/supermilas/ordercore/internal/notify"
	branchrepo "github.com/supermilas/ordercore/internal/repository/branch"
	orderrepo "github.com/supermilas/ordercore/internal/repository/order"
	catalogsvc "github.com/supermilas/ordercore/internal/service/catalog"
	"github.com/supermilas/ordercore/internal/sequence"
)

// Module provides the order lifecycle service to Fx.
var Module = fx.Provide(func(
	store *orderrepo.Repository,
	branches *branchrepo.Repository,
	resolver *catalogsvc.Resolver,
	numbers *sequence.Generator,
	fanout notify.Fanout,
	cacheStore cache.Store,
	publisher messaging.Client,
	logger *zap.Logger,
	cfg config.Config,
) *Service {
	return NewService(store, branches, resolver, numbers, fanout, cacheStore, publisher, logger, cfg)
})
