package signing

import (
	"fmt"
	"slices"

	"WalletCore/internal/crypto"
	"WalletCore/internal/factors"
)

// NeglectFactorReason is why a factor source did not sign.
type NeglectFactorReason uint8

const (
	// UserExplicitlySkipped means the user chose not to use the factor source. Final for the run.
	UserExplicitlySkipped NeglectFactorReason = iota + 1

	// Failure means the factor source could not sign, e.g. a hardware wallet was disconnected.
	Failure

	// Irrelevant means every signable referencing the factor source had already failed.
	Irrelevant

	// Simulation marks a neglect that only previews what skipping would cause.
	Simulation
)

// String returns the text form of the reason.
func (r NeglectFactorReason) String() string {
	switch r {
	case UserExplicitlySkipped:
		return "userExplicitlySkipped"
	case Failure:
		return "failure"
	case Irrelevant:
		return "irrelevant"
	case Simulation:
		return "simulation"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// NeglectedFactor is one factor source that did not sign.
type NeglectedFactor struct {
	Reason         NeglectFactorReason    // Reason is why it did not sign
	FactorSourceID factors.FactorSourceID // FactorSourceID is the neglected source
}

// NeglectedFactors is a set of factor sources neglected for the same reason.
type NeglectedFactors struct {
	Reason  NeglectFactorReason      // Reason applies to every factor source
	Factors []factors.FactorSourceID // Factors are the neglected sources
}

// Split returns one NeglectedFactor per factor source.
func (n NeglectedFactors) Split() []NeglectedFactor {
	out := make([]NeglectedFactor, len(n.Factors))
	for i, id := range n.Factors {
		out[i] = NeglectedFactor{Reason: n.Reason, FactorSourceID: id}
	}
	return out
}

// HDSignature is a signature by one factor instance over one payload.
type HDSignature struct {
	Payload   PayloadID                                       // Payload is what was signed
	Instance  factors.HierarchicalDeterministicFactorInstance // Instance is the signing key
	Signature crypto.SignatureWithPublicKey                   // Signature carries the raw signature and public key
}

// FactorSourceID returns the source that produced the signature.
func (s HDSignature) FactorSourceID() factors.FactorSourceID {
	return s.Instance.FactorSourceID
}

// Verify checks the signature against the instance key and payload hash.
func (s HDSignature) Verify() bool {
	return s.Signature.PublicKey.Equal(s.Instance.PublicKey.PublicKey) && s.Signature.Verify(s.Payload.Hash)
}

// signatureKey identifies the signing slot of a signature.
type signatureKey struct {
	payload  PayloadID
	instance factors.InstanceKey
}

// key returns the signing slot of the signature.
func (s HDSignature) key() signatureKey {
	return signatureKey{payload: s.Payload, instance: s.Instance.Key()}
}

// SignWithFactorsOutcome is the result of one factor source: either signatures or a neglect.
type SignWithFactorsOutcome struct {
	signatures []HDSignature        // signatures are set when signed
	neglected  *NeglectFactorReason // neglected is set when the source did not sign
}

// Signed is the outcome of a factor source that produced signatures.
func Signed(signatures ...HDSignature) SignWithFactorsOutcome {
	return SignWithFactorsOutcome{signatures: slices.Clone(signatures)}
}

// Neglected is the outcome of a factor source that did not sign.
func Neglected(reason NeglectFactorReason) SignWithFactorsOutcome {
	return SignWithFactorsOutcome{neglected: &reason}
}

// Skipped is Neglected(UserExplicitlySkipped).
func Skipped() SignWithFactorsOutcome {
	return Neglected(UserExplicitlySkipped)
}

// Failed is Neglected(Failure).
func Failed() SignWithFactorsOutcome {
	return Neglected(Failure)
}

// IsSigned reports whether signatures were produced.
func (o SignWithFactorsOutcome) IsSigned() bool {
	return o.neglected == nil
}

// Signatures returns the produced signatures.
func (o SignWithFactorsOutcome) Signatures() []HDSignature {
	return slices.Clone(o.signatures)
}

// NeglectReason returns the reason when the source did not sign.
func (o SignWithFactorsOutcome) NeglectReason() (NeglectFactorReason, bool) {
	if o.neglected == nil {
		return 0, false
	}
	return *o.neglected, true
}
