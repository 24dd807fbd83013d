// Package derivation collects public keys from factor sources at requested derivation paths.
package derivation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"WalletCore/internal/factors"
)

// Purpose is why keys are derived.
type Purpose uint8

const (
	// CreatingNewAccount derives the first key of a new account.
	CreatingNewAccount Purpose = iota + 1

	// CreatingNewPersona derives the first key of a new persona.
	CreatingNewPersona

	// SecurifyingAccount derives the keys of a security structure for an account.
	SecurifyingAccount

	// SecurifyingPersona derives the keys of a security structure for a persona.
	SecurifyingPersona

	// PreDerivingKeys fills the key cache ahead of use.
	PreDerivingKeys

	// AccountRecovery scans paths for accounts controlled by the factor sources.
	AccountRecovery
)

// String returns the text form of the purpose.
func (p Purpose) String() string {
	switch p {
	case CreatingNewAccount:
		return "creatingNewAccount"
	case CreatingNewPersona:
		return "creatingNewPersona"
	case SecurifyingAccount:
		return "securifyingAccount"
	case SecurifyingPersona:
		return "securifyingPersona"
	case PreDerivingKeys:
		return "preDerivingKeys"
	case AccountRecovery:
		return "accountRecovery"
	default:
		return fmt.Sprintf("purpose(%d)", uint8(p))
	}
}

// KeyDerivationRequestPerFactorSource is every path one factor source must derive.
type KeyDerivationRequestPerFactorSource struct {
	FactorSourceID factors.FactorSourceID   // FactorSourceID is the asked source
	Paths          []factors.DerivationPath // Paths must each produce one key
}

// KeyDerivationRequest is one batch for every factor source of one kind.
type KeyDerivationRequest struct {
	Kind            factors.FactorSourceKind              // Kind is shared by every entry
	Purpose         Purpose                               // Purpose is why keys are derived
	PerFactorSource []KeyDerivationRequestPerFactorSource // PerFactorSource holds one entry per source
}

// KeyDerivationResponse maps each factor source to the keys it derived.
type KeyDerivationResponse struct {
	FactorInstances map[factors.FactorSourceID][]factors.HierarchicalDeterministicFactorInstance // FactorInstances are keyed by deriving source
}

// NewKeyDerivationResponse creates an empty response.
func NewKeyDerivationResponse() KeyDerivationResponse {
	return KeyDerivationResponse{FactorInstances: make(map[factors.FactorSourceID][]factors.HierarchicalDeterministicFactorInstance)}
}

// Add appends derived keys of a factor source.
func (r KeyDerivationResponse) Add(id factors.FactorSourceID, instances ...factors.HierarchicalDeterministicFactorInstance) {
	r.FactorInstances[id] = append(r.FactorInstances[id], instances...)
}

// Len returns the number of derived keys.
func (r KeyDerivationResponse) Len() int {
	n := 0
	for _, list := range r.FactorInstances {
		n += len(list)
	}
	return n
}

// All returns every derived key, grouped by source in a stable order.
func (r KeyDerivationResponse) All() []factors.HierarchicalDeterministicFactorInstance {
	ids := make([]factors.FactorSourceID, 0, len(r.FactorInstances))
	for id := range r.FactorInstances {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, compareIDs)

	var out []factors.HierarchicalDeterministicFactorInstance
	for _, id := range ids {
		out = append(out, r.FactorInstances[id]...)
	}

	return out
}

// compareIDs orders factor source ids by their text form.
func compareIDs(a, b factors.FactorSourceID) int {
	return strings.Compare(a.String(), b.String())
}

// KeyDerivationInteractor asks every factor source of a batch to derive public keys.
type KeyDerivationInteractor interface {
	Derive(ctx context.Context, req KeyDerivationRequest) (KeyDerivationResponse, error)
}

// KeyDerivationInteractorFunc adapts a function to KeyDerivationInteractor.
type KeyDerivationInteractorFunc func(ctx context.Context, req KeyDerivationRequest) (KeyDerivationResponse, error)

// Derive calls f.
func (f KeyDerivationInteractorFunc) Derive(ctx context.Context, req KeyDerivationRequest) (KeyDerivationResponse, error) {
	return f(ctx, req)
}
