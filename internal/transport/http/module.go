package http

import (
	"go.uber.org/fx"

	branchtransport "github.com/supermilas/ordercore/internal/transport/http/branch"
	ordertransport "github.com/supermilas/ordercore/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	branchtransport.Module,
	ordertransport.Module,
)
