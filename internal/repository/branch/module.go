package branch

import "go.uber.org/fx"

// Module provides the branch directory to Fx.
var Module = fx.Provide(NewRepository)
