// Package metrics provides the publish pipeline's observability hooks.
//
// Components receive a Recorder through their constructors and default to NoopRecorder,
// so metrics can be left unconfigured without nil checks at call sites:
//
//	orch := publish.New(cfg, targets, publish.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the supplied registry and HTTPHandler
// exposes that registry on /metrics.
package metrics
