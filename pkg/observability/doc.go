/*
Package observability exposes Prometheus metrics for the dialogue engine.

Metrics plug into the engine through domain.LifecycleHooks and into the runner
through its Observer callback. Nothing is registered globally: callers pass the
registerer, which keeps tests isolated.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, _ := formbot.New(store, profiles, formbot.WithLifecycleHooks(
		observability.ComposeHooks(metrics.Hooks(), audit),
	))
	r := runner.New(eng, runner.WithObserver(metrics.ObserveEvent))
*/
package observability
