package sequence

import (
	"go.uber.org/fx"

	seqrepo "github.com/supermilas/ordercore/internal/repository/sequence"
)

// Module provides the order number generator to Fx.
var Module = fx.Provide(func(repo *seqrepo.Repository) *Generator {
	return NewGenerator(repo)
})
