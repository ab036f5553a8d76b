package app

import (
	"go.uber.org/fx"

	"github.com/supermilas/ordercore/internal/cache"
	"github.com/supermilas/ordercore/internal/config"
	"github.com/supermilas/ordercore/internal/database"
	"github.com/supermilas/ordercore/internal/logger"
	"github.com/supermilas/ordercore/internal/messaging"
	"github.com/supermilas/ordercore/internal/notify"
	"github.com/supermilas/ordercore/internal/observability"
	repositorybranch "github.com/supermilas/ordercore/internal/repository/branch"
	repositorycatalog "github.com/supermilas/ordercore/internal/repository/catalog"
	repositoryorder "github.com/supermilas/ordercore/internal/repository/order"
	repositorysequence "github.com/supermilas/ordercore/internal/repository/sequence"
	"github.com/supermilas/ordercore/internal/sequence"
	grpcserver "github.com/supermilas/ordercore/internal/server/grpc"
	httpserver "github.com/supermilas/ordercore/internal/server/http"
	servicecatalog "github.com/supermilas/ordercore/internal/service/catalog"
	serviceorder "github.com/supermilas/ordercore/internal/service/order"
	transporthttp "github.com/supermilas/ordercore/internal/transport/http"
	"github.com/supermilas/ordercore/internal/worker"
	workerorder "github.com/supermilas/ordercore/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	notify.Module,
	observability.Module,
	repositorybranch.Module,
	repositorycatalog.Module,
	repositoryorder.Module,
	repositorysequence.Module,
	sequence.Module,
	servicecatalog.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background order event processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP plus gRPC health).
var Module = fx.Options(
	HTTP,
	grpcserver.Module,
)
