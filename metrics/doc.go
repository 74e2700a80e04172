// Package metrics exports node metrics in the Prometheus format.
//
// Prometheus satisfies the MetricsCollector interface of the root package,
// so it can be handed straight to respkv.WithMetrics:
//
//	m := metrics.NewPrometheus()
//	node, err := respkv.New(respkv.WithMetrics(m))
//	...
//	go m.Serve(ctx, ":9121")
//
// Every collector is registered on a private registry, so several nodes in
// one process (as in tests) never collide on the default registerer.
package metrics
