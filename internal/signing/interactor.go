package signing

import (
	"context"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
)

// TransactionSignRequestInput is one payload a factor source is asked to sign.
type TransactionSignRequestInput[S Signable] struct {
	Payload              S                                                 // Payload is the signable
	PayloadID            PayloadID                                         // PayloadID is what the signatures cover
	FactorSourceID       factors.FactorSourceID                            // FactorSourceID is the asked source
	OwnedFactorInstances []factors.HierarchicalDeterministicFactorInstance // OwnedFactorInstances are the keys that must each sign
}

// InvalidTransactionIfNeglected names a payload that would fail if the factor source were neglected.
type InvalidTransactionIfNeglected struct {
	PayloadID PayloadID         // PayloadID is the payload that would fail
	Entities  []address.Address // Entities are the entities that would fail to authorize it
}

// PerFactorSourceInput is everything one factor source is asked to sign in one batch.
type PerFactorSourceInput[S Signable] struct {
	FactorSourceID     factors.FactorSourceID           // FactorSourceID is the asked source
	Transactions       []TransactionSignRequestInput[S] // Transactions are the payloads to sign
	InvalidIfNeglected []InvalidTransactionIfNeglected  // InvalidIfNeglected warns the user before skipping
}

// SignatureCount returns how many signatures a complete answer holds.
func (in PerFactorSourceInput[S]) SignatureCount() int {
	n := 0
	for _, tx := range in.Transactions {
		n += len(tx.OwnedFactorInstances)
	}
	return n
}

// PayloadIDs returns the payloads the source is asked to sign.
func (in PerFactorSourceInput[S]) PayloadIDs() []PayloadID {
	ids := make([]PayloadID, len(in.Transactions))
	for i, tx := range in.Transactions {
		ids[i] = tx.PayloadID
	}
	return ids
}

// SignRequest is one batch for every factor source of one kind.
type SignRequest[S Signable] struct {
	Kind    factors.FactorSourceKind  // Kind is shared by every input
	Purpose SigningPurpose            // Purpose is why signatures are collected
	Inputs  []PerFactorSourceInput[S] // Inputs holds one entry per factor source
}

// FactorSourceIDs returns the asked sources in input order.
func (r SignRequest[S]) FactorSourceIDs() []factors.FactorSourceID {
	ids := make([]factors.FactorSourceID, len(r.Inputs))
	for i, in := range r.Inputs {
		ids[i] = in.FactorSourceID
	}
	return ids
}

// SignResponse holds one outcome per asked factor source.
type SignResponse struct {
	Outcomes map[factors.FactorSourceID]SignWithFactorsOutcome // Outcomes maps each source to its result
}

// NewSignResponse creates an empty response.
func NewSignResponse() SignResponse {
	return SignResponse{Outcomes: make(map[factors.FactorSourceID]SignWithFactorsOutcome)}
}

// Set records the outcome of a factor source.
func (r SignResponse) Set(id factors.FactorSourceID, outcome SignWithFactorsOutcome) {
	r.Outcomes[id] = outcome
}

// SignInteractor asks the user, or a device, to sign with every factor source of a batch.
// Sign is called once per factor source kind and may fan out internally.
type SignInteractor[S Signable] interface {
	Sign(ctx context.Context, req SignRequest[S]) (SignResponse, error)
}

// SignInteractorFunc adapts a function to SignInteractor.
type SignInteractorFunc[S Signable] func(ctx context.Context, req SignRequest[S]) (SignResponse, error)

// Sign calls f.
func (f SignInteractorFunc[S]) Sign(ctx context.Context, req SignRequest[S]) (SignResponse, error) {
	return f(ctx, req)
}
