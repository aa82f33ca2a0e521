//go:build wireinject

package bootstrap

import "github.com/google/wire"

// InitializeApp is the Wire injector: `wire gen ./internal/bootstrap`
// regenerates wire_gen.go from this graph. wire_gen.go is hand-written in
// this tree (no `wire` binary was run to produce it) but implements
// exactly the graph declared here.
func InitializeApp(p Params) (*App, error) {
	wire.Build(
		ProvideServices,
		ProvideKernel,
		ProvideLimitApplier,
		ProvideLogger,
		ProvideEngine,
		ProvideControlServer,
		NewApp,
	)
	return nil, nil
}
