package signing

import (
	"log/slog"
	"time"

	"WalletCore/internal/factors"
)

// Summary describes a finished collection run.
type Summary struct {
	Purpose    SigningPurpose // Purpose is what was signed for
	Successful int            // Successful counts authorized payloads
	Failed     int            // Failed counts payloads that could not be authorized
	Neglected  int            // Neglected counts factor sources that did not sign
	Elapsed    time.Duration  // Elapsed is the run duration
}

// Observer receives progress events from a collector run.
// Calls are made from the goroutine running Collect.
type Observer interface {
	KindStarted(kind factors.FactorSourceKind, sources int)
	FactorSourceSigned(id factors.FactorSourceID, signatures int)
	FactorSourceNeglected(n NeglectedFactor)
	InteractorFailed(kind factors.FactorSourceKind, err error)
	FinishedEarly(skippedKinds int)
	Finished(s Summary)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) KindStarted(factors.FactorSourceKind, int) {}
func (NopObserver) FactorSourceSigned(factors.FactorSourceID, int) {}
func (NopObserver) FactorSourceNeglected(NeglectedFactor) {}
func (NopObserver) InteractorFailed(factors.FactorSourceKind, error) {}
func (NopObserver) FinishedEarly(int) {}
func (NopObserver) Finished(Summary) {}

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
	o.log.Debug("requesting signatures", "kind", kind, "sources", sources)
}

// FactorSourceSigned logs a signing factor source.
func (o *LogObserver) FactorSourceSigned(id factors.FactorSourceID, signatures int) {
	o.log.Debug("factor source signed", "source", id, "signatures", signatures)
}

// FactorSourceNeglected logs a neglected factor source.
func (o *LogObserver) FactorSourceNeglected(n NeglectedFactor) {
	o.log.Info("factor source neglected", "source", n.FactorSourceID, "reason", n.Reason)
}

// InteractorFailed logs an interactor error.
func (o *LogObserver) InteractorFailed(kind factors.FactorSourceKind, err error) {
	o.log.Warn("sign interactor failed", "kind", kind, "error", err)
}

// FinishedEarly logs skipped kinds.
func (o *LogObserver) FinishedEarly(skippedKinds int) {
	o.log.Debug("finished early", "skipped_kinds", skippedKinds)
}

// Finished logs the run summary.
func (o *LogObserver) Finished(s Summary) {
	o.log.Info("signature collection finished",
		"purpose", s.Purpose,
		"successful", s.Successful,
		"failed", s.Failed,
		"neglected", s.Neglected,
		"elapsed", s.Elapsed,
	)
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

func (m multiObserver) FactorSourceSigned(id factors.FactorSourceID, signatures int) {
	for _, o := range m {
		o.FactorSourceSigned(id, signatures)
	}
}

func (m multiObserver) FactorSourceNeglected(n NeglectedFactor) {
	for _, o := range m {
		o.FactorSourceNeglected(n)
	}
}

func (m multiObserver) InteractorFailed(kind factors.FactorSourceKind, err error) {
	for _, o := range m {
		o.InteractorFailed(kind, err)
	}
}

func (m multiObserver) FinishedEarly(skippedKinds int) {
	for _, o := range m {
		o.FinishedEarly(skippedKinds)
	}
}

func (m multiObserver) Finished(s Summary) {
	for _, o := range m {
		o.Finished(s)
	}
}
