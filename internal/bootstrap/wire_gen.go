// This file stands in for Wire's generated output and is maintained by hand.

//go:build !wireinject

package bootstrap

// InitializeApp builds the object graph declared in wire.go. It is
// hand-maintained in this tree to mirror exactly what `wire gen` would
// emit for that injector: one call per provider, in dependency order, no
// branching.
func InitializeApp(p Params) (*App, error) {
	specs, err := ProvideServices(p)
	if err != nil {
		return nil, err
	}
	k := ProvideKernel()
	limiter := ProvideLimitApplier()
	logger := ProvideLogger(p)
	engine := ProvideEngine(specs, k, limiter, logger)
	ctl := ProvideControlServer(p, engine, logger)
	return NewApp(engine, ctl, logger)
}
