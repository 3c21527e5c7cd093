package catalog

import "go.uber.org/fx"

// Module wires the exchange rate catalog.
var Module = fx.Module("catalog",
	fx.Provide(Load),
)
