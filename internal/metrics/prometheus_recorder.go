package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitepublisher"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	publishDuration prom.Histogram
	publishOutcomes *prom.CounterVec
	storeDuration   *prom.HistogramVec
	targetResults   *prom.CounterVec
	storeRetries    *prom.CounterVec
	triggers        *prom.CounterVec
	triggerDuration prom.Histogram
	httpRequests    *prom.CounterVec
	httpDuration    *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.publishDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of publish operations, excluding the detached deployment trigger",
			Buckets:   prom.DefBuckets,
		})
		pr.publishOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publish_outcomes_total",
			Help:      "Publish outcomes by aggregate status",
		}, []string{"outcome"})
		pr.storeDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "store_call_duration_seconds",
			Help:      "Duration of content store reads and writes per target",
			Buckets:   prom.DefBuckets,
		}, []string{"target", "stage", "result"})
		pr.targetResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "target_results_total",
			Help:      "Per-target publish results",
		}, []string{"target", "result"})
		pr.storeRetries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      "Content store calls retried after a transient failure",
		}, []string{"target", "stage"})
		pr.triggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "deploy_triggers_total",
			Help:      "Deployment trigger results",
		}, []string{"result"})
		pr.triggerDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "deploy_trigger_duration_seconds",
			Help:      "Duration of deployment trigger calls",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		})
		pr.httpRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"})
		pr.httpDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prom.DefBuckets,
		}, []string{"route"})
		reg.MustRegister(pr.publishDuration, pr.publishOutcomes, pr.storeDuration, pr.targetResults,
			pr.storeRetries, pr.triggers, pr.triggerDuration, pr.httpRequests, pr.httpDuration)
	})
	return pr
}

func resultOf(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	if p == nil || p.publishDuration == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPublishOutcome(outcome OutcomeLabel) {
	if p == nil || p.publishOutcomes == nil {
		return
	}
	p.publishOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStoreCall(target, stage string, d time.Duration, success bool) {
	if p == nil || p.storeDuration == nil {
		return
	}
	p.storeDuration.WithLabelValues(target, stage, resultOf(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTargetResult(target string, result ResultLabel) {
	if p == nil || p.targetResults == nil {
		return
	}
	p.targetResults.WithLabelValues(target, string(result)).Inc()
}

func (p *PrometheusRecorder) IncStoreRetry(target, stage string) {
	if p == nil || p.storeRetries == nil {
		return
	}
	p.storeRetries.WithLabelValues(target, stage).Inc()
}

func (p *PrometheusRecorder) IncTrigger(result TriggerLabel) {
	if p == nil || p.triggers == nil {
		return
	}
	p.triggers.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveTriggerDuration(d time.Duration) {
	if p == nil || p.triggerDuration == nil {
		return
	}
	p.triggerDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil || p.httpRequests == nil {
		return
	}
	p.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
