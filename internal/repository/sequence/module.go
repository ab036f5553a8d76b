package sequence

import "go.uber.org/fx"

// Module provides the sequence counter repository to Fx.
var Module = fx.Provide(NewRepository)
