// Package metrics exports collector runs as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/remote"
	"WalletCore/internal/signing"
)

// Metrics also reports signer host requests.
var _ remote.HostObserver = (*Metrics)(nil)

const namespace = "walletcore"

// Metrics holds the collector metrics and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry // registry holds every metric below

	kindBatches      *prometheus.CounterVec   // kindBatches counts interactor batches by collector and kind
	signed           *prometheus.CounterVec   // signed counts signatures by factor source kind
	neglected        *prometheus.CounterVec   // neglected counts neglected factor sources by kind and reason
	interactorErrors *prometheus.CounterVec   // interactorErrors counts failed batches by collector and kind
	finishedEarly    prometheus.Counter       // finishedEarly counts signing runs stopped before the last kind
	payloads         *prometheus.CounterVec   // payloads counts signed payloads by purpose and result
	derivedKeys      *prometheus.CounterVec   // derivedKeys counts derived keys by purpose
	runDuration      *prometheus.HistogramVec // runDuration observes run durations by collector and purpose
	hostRequests     *prometheus.HistogramVec // hostRequests observes signer host requests by method and result
}

// New creates the metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		kindBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kind_batches_total",
			Help:      "Interactor batches sent, one per factor source kind",
		}, []string{"collector", "kind"}),
		signed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "signatures_total",
			Help:      "Signatures accepted from factor sources",
		}, []string{"kind"}),
		neglected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "neglected_factor_sources_total",
			Help:      "Factor sources that did not sign",
		}, []string{"kind", "reason"}),
		interactorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactor_errors_total",
			Help:      "Interactor batches that returned an error",
		}, []string{"collector", "kind"}),
		finishedEarly: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "finished_early_total",
			Help:      "Signing runs that stopped before asking every kind",
		}),
		payloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "payloads_total",
			Help:      "Payloads by signing result",
		}, []string{"purpose", "result"}),
		derivedKeys: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "derivation",
			Name:      "keys_total",
			Help:      "Public keys derived",
		}, []string{"purpose"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Collector run duration, including time spent waiting on the user",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"collector", "purpose"}),
		hostRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "request_duration_seconds",
			Help:      "Signer host request handling time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "result"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SigningObserver returns an observer recording signing runs.
func (m *Metrics) SigningObserver() signing.Observer {
	return signingObserver{m: m}
}

// DerivationObserver returns an observer recording derivation runs.
func (m *Metrics) DerivationObserver() derivation.Observer {
	return derivationObserver{m: m}
}

// signingObserver implements signing.Observer.
type signingObserver struct {
	m *Metrics
}

// KindStarted counts a batch.
func (o signingObserver) KindStarted(kind factors.FactorSourceKind, _ int) {
	o.m.kindBatches.WithLabelValues("signing", kind.String()).Inc()
}

// FactorSourceSigned counts the accepted signatures.
func (o signingObserver) FactorSourceSigned(id factors.FactorSourceID, signatures int) {
	o.m.signed.WithLabelValues(id.Kind().String()).Add(float64(signatures))
}

// FactorSourceNeglected counts the neglect.
func (o signingObserver) FactorSourceNeglected(n signing.NeglectedFactor) {
	o.m.neglected.WithLabelValues(n.FactorSourceID.Kind().String(), n.Reason.String()).Inc()
}

// InteractorFailed counts the failed batch.
func (o signingObserver) InteractorFailed(kind factors.FactorSourceKind, _ error) {
	o.m.interactorErrors.WithLabelValues("signing", kind.String()).Inc()
}

// FinishedEarly counts the early stop.
func (o signingObserver) FinishedEarly(int) {
	o.m.finishedEarly.Inc()
}

// Finished records payload results and the run duration.
func (o signingObserver) Finished(s signing.Summary) {
	purpose := s.Purpose.String()

	o.m.payloads.WithLabelValues(purpose, "successful").Add(float64(s.Successful))
	o.m.payloads.WithLabelValues(purpose, "failed").Add(float64(s.Failed))
	o.m.runDuration.WithLabelValues("signing", purpose).Observe(s.Elapsed.Seconds())
}

// derivationObserver implements derivation.Observer.
type derivationObserver struct {
	m *Metrics
}

// KindStarted counts a batch.
func (o derivationObserver) KindStarted(kind factors.FactorSourceKind, _ int) {
	o.m.kindBatches.WithLabelValues("derivation", kind.String()).Inc()
}

// KindFinished counts a failed batch.
func (o derivationObserver) KindFinished(kind factors.FactorSourceKind, _ int, err error) {
	if err != nil {
		o.m.interactorErrors.WithLabelValues("derivation", kind.String()).Inc()
	}
}

// Finished records the derived keys and the run duration.
func (o derivationObserver) Finished(purpose derivation.Purpose, keys int, elapsed time.Duration) {
	o.m.derivedKeys.WithLabelValues(purpose.String()).Add(float64(keys))
	o.m.runDuration.WithLabelValues("derivation", purpose.String()).Observe(elapsed.Seconds())
}

// RequestServed records one signer host request.
func (m *Metrics) RequestServed(method string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	m.hostRequests.WithLabelValues(method, result).Observe(elapsed.Seconds())
}
