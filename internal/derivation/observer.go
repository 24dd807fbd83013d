package derivation

import (
	"log/slog"
	"time"

	"WalletCore/internal/factors"
)

// Observer receives progress events from a KeysCollector run.
type Observer interface {
	KindStarted(kind factors.FactorSourceKind, sources int)
	KindFinished(kind factors.FactorSourceKind, keys int, err error)
	Finished(purpose Purpose, keys int, elapsed time.Duration)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) KindStarted(factors.FactorSourceKind, int) {}
func (NopObserver) KindFinished(factors.FactorSourceKind, int, error) {}
func (NopObserver) Finished(Purpose, int, time.Duration) {}

// LogObserver logs every event.
type LogObserver struct {
	log *slog.Logger // log receives the events
}

// NewLogObserver creates an observer logging to log.
func NewLogObserver(log *slog.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// KindStarted logs the start of a kind batch.
func (o *LogObserver) KindStarted(kind factors.FactorSourceKind, sources int) {
	o.log.Debug("requesting keys", "kind", kind, "sources", sources)
}

// KindFinished logs the end of a kind batch.
func (o *LogObserver) KindFinished(kind factors.FactorSourceKind, keys int, err error) {
	if err != nil {
		o.log.Warn("key derivation failed", "kind", kind, "error", err)
		return
	}
	o.log.Debug("keys derived", "kind", kind, "keys", keys)
}

// Finished logs the run summary.
func (o *LogObserver) Finished(purpose Purpose, keys int, elapsed time.Duration) {
	o.log.Info("key derivation finished", "purpose", purpose, "keys", keys, "elapsed", elapsed)
}

// multiObserver forwards every event to each observer in order.
type multiObserver []Observer

// JoinObservers returns an observer forwarding every event to each of obs.
func JoinObservers(obs ...Observer) Observer {
	return multiObserver(obs)
}

func (m multiObserver) KindStarted(kind factors.FactorSourceKind, sources int) {
	for _, o := range m {
		o.KindStarted(kind, sources)
	}
}

func (m multiObserver) KindFinished(kind factors.FactorSourceKind, keys int, err error) {
	for _, o := range m {
		o.KindFinished(kind, keys, err)
	}
}

func (m multiObserver) Finished(purpose Purpose, keys int, elapsed time.Duration) {
	for _, o := range m {
		o.Finished(purpose, keys, elapsed)
	}
}
