package signing

import (
	"fmt"
	"maps"
	"slices"

	"WalletCore/internal/factors"
)

// PetitionStatus is where a petition stands.
type PetitionStatus uint8

const (
	// Pending petitions can still succeed or fail.
	Pending PetitionStatus = iota

	// Success petitions have enough signatures.
	Success

	// Fail petitions can no longer collect enough signatures.
	Fail
)

// String returns the text form of the status.
func (s PetitionStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Finished reports whether the status can no longer change.
func (s PetitionStatus) Finished() bool {
	return s != Pending
}

// allOf combines statuses that must all succeed.
func allOf(statuses ...PetitionStatus) PetitionStatus {
	result := Success
	for _, s := range statuses {
		switch s {
		case Fail:
			return Fail
		case Pending:
			result = Pending
		}
	}
	return result
}

// PetitionForFactorsSubState is a set of items keyed by factor source id.
type PetitionForFactorsSubState[T any] struct {
	items map[factors.FactorSourceID]T // items holds one item per factor source
	order []factors.FactorSourceID     // order keeps insertion order for snapshots
}

// NewPetitionForFactorsSubState creates an empty set.
func NewPetitionForFactorsSubState[T any]() *PetitionForFactorsSubState[T] {
	return &PetitionForFactorsSubState[T]{items: make(map[factors.FactorSourceID]T)}
}

// Insert adds the item unless the factor source is already present.
// Returns false, leaving the set unchanged, on repeat inserts.
func (s *PetitionForFactorsSubState[T]) Insert(id factors.FactorSourceID, item T) bool {
	if _, ok := s.items[id]; ok {
		return false
	}

	s.items[id] = item
	s.order = append(s.order, id)

	return true
}

// Contains reports whether the factor source is present.
func (s *PetitionForFactorsSubState[T]) Contains(id factors.FactorSourceID) bool {
	_, ok := s.items[id]
	return ok
}

// Len returns the number of factor sources present.
func (s *PetitionForFactorsSubState[T]) Len() int {
	return len(s.items)
}

// Snapshot returns the items in insertion order.
func (s *PetitionForFactorsSubState[T]) Snapshot() []T {
	out := make([]T, len(s.order))
	for i, id := range s.order {
		out[i] = s.items[id]
	}
	return out
}

// clone returns a copy independent of s.
func (s *PetitionForFactorsSubState[T]) clone() *PetitionForFactorsSubState[T] {
	return &PetitionForFactorsSubState[T]{
		items: maps.Clone(s.items),
		order: slices.Clone(s.order),
	}
}

// FactorListKind tells threshold and override lists apart.
type FactorListKind uint8

const (
	// ThresholdList needs as many signatures as the role threshold.
	ThresholdList FactorListKind = iota + 1

	// OverrideList needs a single signature.
	OverrideList
)

// String returns the text form of the list kind.
func (k FactorListKind) String() string {
	if k == OverrideList {
		return "override"
	}
	return "threshold"
}

// PetitionForFactors tracks one factor list of one role for one payload.
type PetitionForFactors struct {
	list      FactorListKind                                    // list is threshold or override
	instances []factors.HierarchicalDeterministicFactorInstance // instances are the keys in the list
	required  int                                               // required is how many must sign
	signed    *PetitionForFactorsSubState[HDSignature]          // signed are collected signatures
	neglected *PetitionForFactorsSubState[NeglectedFactor]      // neglected are sources that will not sign
}

// NewThresholdPetition tracks a threshold list needing threshold signatures.
func NewThresholdPetition(threshold uint8, instances []factors.HierarchicalDeterministicFactorInstance) *PetitionForFactors {
	return newPetitionForFactors(ThresholdList, int(threshold), instances)
}

// NewOverridePetition tracks an override list needing one signature.
func NewOverridePetition(instances []factors.HierarchicalDeterministicFactorInstance) *PetitionForFactors {
	return newPetitionForFactors(OverrideList, 1, instances)
}

// newPetitionForFactors creates an empty petition.
func newPetitionForFactors(list FactorListKind, required int, instances []factors.HierarchicalDeterministicFactorInstance) *PetitionForFactors {
	return &PetitionForFactors{
		list:      list,
		instances: slices.Clone(instances),
		required:  required,
		signed:    NewPetitionForFactorsSubState[HDSignature](),
		neglected: NewPetitionForFactorsSubState[NeglectedFactor](),
	}
}

// List returns the list kind.
func (p *PetitionForFactors) List() FactorListKind {
	return p.list
}

// Required returns how many factor sources must sign.
func (p *PetitionForFactors) Required() int {
	return p.required
}

// instanceOf returns the key a factor source holds in this list.
func (p *PetitionForFactors) instanceOf(id factors.FactorSourceID) (factors.HierarchicalDeterministicFactorInstance, bool) {
	for _, inst := range p.instances {
		if inst.FactorSourceID == id {
			return inst, true
		}
	}
	return factors.HierarchicalDeterministicFactorInstance{}, false
}

// References reports whether the factor source is in the list.
func (p *PetitionForFactors) References(id factors.FactorSourceID) bool {
	_, ok := p.instanceOf(id)
	return ok
}

// AddSignature records a signature of a listed instance. Repeats are ignored.
// It panics if the instance is not listed or its factor source was neglected.
func (p *PetitionForFactors) AddSignature(sig HDSignature) {
	id := sig.FactorSourceID()

	inst, ok := p.instanceOf(id)
	if !ok || inst.Key() != sig.Instance.Key() {
		panic(fmt.Sprintf("signature by %s at %s is not for this %s list", id, sig.Instance.Path(), p.list))
	}

	if p.neglected.Contains(id) {
		panic(fmt.Sprintf("factor source %s already neglected, cannot sign", id))
	}

	p.signed.Insert(id, sig)
}

// Neglect records that a listed factor source will not sign. Repeats are ignored.
// It panics if the factor source already signed.
func (p *PetitionForFactors) Neglect(n NeglectedFactor) {
	if !p.References(n.FactorSourceID) {
		panic(fmt.Sprintf("factor source %s is not in this %s list", n.FactorSourceID, p.list))
	}

	if p.signed.Contains(n.FactorSourceID) {
		panic(fmt.Sprintf("factor source %s already signed, cannot neglect", n.FactorSourceID))
	}

	p.neglected.Insert(n.FactorSourceID, n)
}

// Status is Success once enough sources signed, and Fail once too many were neglected.
func (p *PetitionForFactors) Status() PetitionStatus {
	switch {
	case p.signed.Len() >= p.required:
		return Success
	case len(p.instances)-p.neglected.Len() < p.required:
		return Fail
	default:
		return Pending
	}
}

// Signed returns the collected signatures.
func (p *PetitionForFactors) Signed() []HDSignature {
	return p.signed.Snapshot()
}

// NeglectedFactors returns the neglected factor sources.
func (p *PetitionForFactors) NeglectedFactors() []NeglectedFactor {
	return p.neglected.Snapshot()
}

// clone returns a copy independent of p.
func (p *PetitionForFactors) clone() *PetitionForFactors {
	return &PetitionForFactors{
		list:      p.list,
		instances: p.instances,
		required:  p.required,
		signed:    p.signed.clone(),
		neglected: p.neglected.clone(),
	}
}
