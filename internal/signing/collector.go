package signing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"WalletCore/internal/factors"
)

// ErrAlreadyCollected is returned when Collect is called twice on the same collector.
var ErrAlreadyCollected = errors.New("signatures already collected")

// FinishEarlyBehaviour is whether to stop asking factor sources once a condition holds.
type FinishEarlyBehaviour uint8

const (
	// Continue keeps asking the remaining factor sources.
	Continue FinishEarlyBehaviour = iota

	// FinishEarly skips the remaining factor sources.
	FinishEarly
)

// FinishEarlyStrategy decides when a run stops before every kind was asked.
// A run always stops once every payload is finished and one of them failed.
type FinishEarlyStrategy struct {
	WhenAllValid    FinishEarlyBehaviour // WhenAllValid applies once every payload is authorized
	WhenSomeInvalid FinishEarlyBehaviour // WhenSomeInvalid applies once any payload failed
}

// DefaultFinishEarlyStrategy stops once everything is authorized and keeps going after failures.
func DefaultFinishEarlyStrategy() FinishEarlyStrategy {
	return FinishEarlyStrategy{WhenAllValid: FinishEarly, WhenSomeInvalid: Continue}
}

// options are the optional collector settings.
type options struct {
	strategy FinishEarlyStrategy // strategy decides when to stop
	observer Observer            // observer receives progress events
}

// Option configures a SignaturesCollector.
type Option func(*options)

// WithFinishEarlyStrategy replaces the default strategy.
func WithFinishEarlyStrategy(s FinishEarlyStrategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithObserver sets the observer of the run.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// newOptions applies opts over the defaults.
func newOptions(opts []Option) options {
	o := options{strategy: DefaultFinishEarlyStrategy(), observer: NopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SignaturesCollector asks factor sources, kind by kind, to sign a batch of payloads.
type SignaturesCollector[S Signable] struct {
	groups     []factors.KindGroup // groups are the referenced sources in friction order
	petitions  *petitions[S]       // petitions track what each payload still needs
	interactor SignInteractor[S]   // interactor produces the signatures
	purpose    SigningPurpose      // purpose selects the required roles
	opts       options             // opts are the optional settings
	collected  atomic.Bool         // collected is set by the first Collect
}

// NewSignaturesCollector prepares a run over the signables.
// Fails with an error wrapping factors.ErrFactorSourceDiscrepancy when an entity
// references a factor source missing from sources.
func NewSignaturesCollector[S Signable](
	sources factors.FactorSources,
	signables []SignableWithEntities[S],
	interactor SignInteractor[S],
	purpose SigningPurpose,
	opts ...Option,
) (*SignaturesCollector[S], error) {
	if interactor == nil {
		return nil, fmt.Errorf("sign interactor is required")
	}

	if err := purpose.validate(); err != nil {
		return nil, err
	}

	txs := make([]*PetitionForTransaction[S], 0, len(signables))
	seen := make(map[PayloadID]bool, len(signables))

	for _, s := range signables {
		if seen[s.PayloadID()] {
			return nil, fmt.Errorf("duplicate signable %s", s.PayloadID())
		}
		seen[s.PayloadID()] = true

		tx, err := NewPetitionForTransaction(s, purpose)
		if err != nil {
			return nil, err
		}

		txs = append(txs, tx)
	}

	p := newPetitions(txs)

	groups, err := sources.GroupByKind(p.factorSourceIDs())
	if err != nil {
		return nil, fmt.Errorf("group factor sources:\n%w", err)
	}

	return &SignaturesCollector[S]{
		groups:     groups,
		petitions:  p,
		interactor: interactor,
		purpose:    purpose,
		opts:       newOptions(opts),
	}, nil
}

// Kinds returns the factor source kinds the run may ask, in order.
func (c *SignaturesCollector[S]) Kinds() []factors.FactorSourceKind {
	kinds := make([]factors.FactorSourceKind, len(c.groups))
	for i, g := range c.groups {
		kinds[i] = g.Kind
	}
	return kinds
}

// Collect asks each kind in friction order until nothing more can change or the strategy says stop.
// Interactor failures neglect the batch and the run continues; a cancelled context aborts the run.
func (c *SignaturesCollector[S]) Collect(ctx context.Context) (SignaturesOutcome[S], error) {
	if !c.collected.CompareAndSwap(false, true) {
		return SignaturesOutcome[S]{}, ErrAlreadyCollected
	}

	start := time.Now()

	for i, group := range c.groups {
		if err := ctx.Err(); err != nil {
			return SignaturesOutcome[S]{}, err
		}

		if c.petitions.shouldFinishEarly(c.opts.strategy) {
			c.opts.observer.FinishedEarly(len(c.groups) - i)
			break
		}

		if err := c.collectKind(ctx, group); err != nil {
			return SignaturesOutcome[S]{}, err
		}
	}

	outcome := c.petitions.outcome()

	c.opts.observer.Finished(Summary{
		Purpose:    c.purpose,
		Successful: len(outcome.Successful),
		Failed:     len(outcome.Failed),
		Neglected:  len(outcome.Neglected),
		Elapsed:    time.Since(start),
	})

	return outcome, nil
}

// collectKind asks every relevant factor source of one kind in a single interactor call.
func (c *SignaturesCollector[S]) collectKind(ctx context.Context, group factors.KindGroup) error {
	includeSucceeded := c.opts.strategy.WhenAllValid == Continue

	var inputs []PerFactorSourceInput[S]

	for _, source := range group.Sources {
		input, state := c.petitions.inputFor(source.ID, includeSucceeded)

		switch state {
		case inputRelevant:
			inputs = append(inputs, input)
		case inputIrrelevant:
			c.neglect(NeglectedFactor{Reason: Irrelevant, FactorSourceID: source.ID}, nil)
		}
	}

	if len(inputs) == 0 {
		return nil
	}

	c.opts.observer.KindStarted(group.Kind, len(inputs))

	resp, err := c.interactor.Sign(ctx, SignRequest[S]{
		Kind:    group.Kind,
		Purpose: c.purpose,
		Inputs:  inputs,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("sign with %s:\n%w", group.Kind, ctxErr)
		}

		c.opts.observer.InteractorFailed(group.Kind, err)

		for _, input := range inputs {
			c.neglect(NeglectedFactor{Reason: Failure, FactorSourceID: input.FactorSourceID}, input.PayloadIDs())
		}

		return nil
	}

	for _, input := range inputs {
		c.process(input, resp.Outcomes)
	}

	return nil
}

// process feeds the outcome of one factor source into the petitions.
func (c *SignaturesCollector[S]) process(input PerFactorSourceInput[S], outcomes map[factors.FactorSourceID]SignWithFactorsOutcome) {
	id := input.FactorSourceID

	outcome, ok := outcomes[id]
	if !ok {
		c.neglect(NeglectedFactor{Reason: Failure, FactorSourceID: id}, input.PayloadIDs())
		return
	}

	if reason, neglected := outcome.NeglectReason(); neglected {
		if reason != UserExplicitlySkipped {
			reason = Failure
		}
		c.neglect(NeglectedFactor{Reason: reason, FactorSourceID: id}, input.PayloadIDs())
		return
	}

	sigs := outcome.Signatures()
	if err := checkSignatures(input, sigs); err != nil {
		c.opts.observer.InteractorFailed(id.Kind(), fmt.Errorf("factor source %s:\n%w", id, err))
		c.neglect(NeglectedFactor{Reason: Failure, FactorSourceID: id}, input.PayloadIDs())
		return
	}

	c.petitions.addSignatures(sigs)
	c.opts.observer.FactorSourceSigned(id, len(sigs))
}

// neglect records and reports a neglected factor source for the asked payloads.
func (c *SignaturesCollector[S]) neglect(n NeglectedFactor, asked []PayloadID) {
	c.petitions.neglect(n, asked)
	c.opts.observer.FactorSourceNeglected(n)
}

// checkSignatures requires exactly one valid signature per requested payload and instance.
func checkSignatures[S Signable](input PerFactorSourceInput[S], sigs []HDSignature) error {
	expected := make(map[signatureKey]factors.HierarchicalDeterministicFactorInstance)
	for _, tx := range input.Transactions {
		for _, inst := range tx.OwnedFactorInstances {
			expected[signatureKey{payload: tx.PayloadID, instance: inst.Key()}] = inst
		}
	}

	got := make(map[signatureKey]bool, len(sigs))

	for _, sig := range sigs {
		key := sig.key()

		inst, ok := expected[key]
		if !ok {
			return fmt.Errorf("unrequested signature over %s at %s", sig.Payload, sig.Instance.Path())
		}

		if got[key] {
			return fmt.Errorf("duplicate signature over %s at %s", sig.Payload, sig.Instance.Path())
		}

		if !inst.Equal(sig.Instance) || !sig.Verify() {
			return fmt.Errorf("invalid signature over %s at %s", sig.Payload, sig.Instance.Path())
		}

		got[key] = true
	}

	if len(got) != len(expected) {
		return fmt.Errorf("got %d of %d signatures", len(got), len(expected))
	}

	return nil
}
