package signing

import (
	"slices"

	"WalletCore/internal/factors"
)

// PetitionOutcome is the result for one payload.
type PetitionOutcome[S Signable] struct {
	Signable   S                 // Signable is the payload
	PayloadID  PayloadID         // PayloadID identifies the payload
	Signatures []HDSignature     // Signatures are the collected signatures, partial for failed payloads
	Neglected  []NeglectedFactor // Neglected are the factor sources of the payload that did not sign
}

// SignaturesOutcome is the result of a collector run.
type SignaturesOutcome[S Signable] struct {
	Successful []PetitionOutcome[S] // Successful payloads are fully authorized
	Failed     []PetitionOutcome[S] // Failed payloads could not be authorized
	Neglected  []NeglectedFactor    // Neglected lists every factor source that did not sign
}

// IsSuccessful reports whether every payload was authorized.
func (o SignaturesOutcome[S]) IsSuccessful() bool {
	return len(o.Failed) == 0
}

// SuccessfulPayloads returns the ids of authorized payloads.
func (o SignaturesOutcome[S]) SuccessfulPayloads() []PayloadID {
	return payloadIDs(o.Successful)
}

// FailedPayloads returns the ids of payloads that could not be authorized.
func (o SignaturesOutcome[S]) FailedPayloads() []PayloadID {
	return payloadIDs(o.Failed)
}

// SignaturesFor returns the signatures of an authorized payload.
func (o SignaturesOutcome[S]) SignaturesFor(id PayloadID) ([]HDSignature, bool) {
	for _, p := range o.Successful {
		if p.PayloadID == id {
			return slices.Clone(p.Signatures), true
		}
	}
	return nil, false
}

// AllSignatures returns the signatures of every authorized payload.
func (o SignaturesOutcome[S]) AllSignatures() []HDSignature {
	var out []HDSignature
	for _, p := range o.Successful {
		out = append(out, p.Signatures...)
	}
	return out
}

// CausesOfFailure returns the neglected factor sources of a failed payload.
func (o SignaturesOutcome[S]) CausesOfFailure(id PayloadID) ([]NeglectedFactor, bool) {
	for _, p := range o.Failed {
		if p.PayloadID == id {
			return slices.Clone(p.Neglected), true
		}
	}
	return nil, false
}

// NeglectedBy returns the factor sources neglected for the reason.
func (o SignaturesOutcome[S]) NeglectedBy(reason NeglectFactorReason) []factors.FactorSourceID {
	var out []factors.FactorSourceID
	for _, n := range o.Neglected {
		if n.Reason == reason {
			out = append(out, n.FactorSourceID)
		}
	}
	return out
}

// payloadIDs collects the ids of the outcomes.
func payloadIDs[S Signable](outcomes []PetitionOutcome[S]) []PayloadID {
	ids := make([]PayloadID, len(outcomes))
	for i, p := range outcomes {
		ids[i] = p.PayloadID
	}
	return ids
}
