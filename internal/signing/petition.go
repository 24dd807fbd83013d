package signing

import (
	"fmt"
	"slices"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/profile"
)

// PetitionForRole tracks one role of one entity. Either list may be absent.
type PetitionForRole struct {
	kind      matrix.RoleKind     // kind is zero for proof of ownership
	threshold *PetitionForFactors // threshold is nil when the role has no threshold factors
	override  *PetitionForFactors // override is nil when the role has no override factors
}

// newPetitionForRole creates the petition for one role requirement.
func newPetitionForRole(req roleRequirement) *PetitionForRole {
	p := &PetitionForRole{kind: req.kind}

	if len(req.thresholdFactors) > 0 {
		p.threshold = NewThresholdPetition(req.threshold, req.thresholdFactors)
	}

	if len(req.overrideFactors) > 0 {
		p.override = NewOverridePetition(req.overrideFactors)
	}

	return p
}

// Kind returns the role kind.
func (p *PetitionForRole) Kind() matrix.RoleKind {
	return p.kind
}

// lists returns the present factor lists.
func (p *PetitionForRole) lists() []*PetitionForFactors {
	out := make([]*PetitionForFactors, 0, 2)
	if p.threshold != nil {
		out = append(out, p.threshold)
	}
	if p.override != nil {
		out = append(out, p.override)
	}
	return out
}

// Status succeeds as soon as any list succeeds and fails once every list failed.
// A role with no factors can never succeed.
func (p *PetitionForRole) Status() PetitionStatus {
	lists := p.lists()
	if len(lists) == 0 {
		return Fail
	}

	failed := 0
	for _, l := range lists {
		switch l.Status() {
		case Success:
			return Success
		case Fail:
			failed++
		}
	}

	if failed == len(lists) {
		return Fail
	}

	return Pending
}

// clone returns a copy independent of p.
func (p *PetitionForRole) clone() *PetitionForRole {
	c := &PetitionForRole{kind: p.kind}
	if p.threshold != nil {
		c.threshold = p.threshold.clone()
	}
	if p.override != nil {
		c.override = p.override.clone()
	}
	return c
}

// PetitionForEntity tracks every role an entity must satisfy for one payload.
type PetitionForEntity struct {
	address address.Address    // address is the entity
	roles   []*PetitionForRole // roles must all succeed
}

// newPetitionForEntity creates the petition of an entity for the purpose.
func newPetitionForEntity(e profile.Entity, purpose SigningPurpose) (*PetitionForEntity, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	reqs, err := purpose.requirementsFor(e)
	if err != nil {
		return nil, err
	}

	p := &PetitionForEntity{address: e.Address}
	for _, req := range reqs {
		if n := len(req.thresholdFactors); n > 0 && (req.threshold == 0 || int(req.threshold) > n) {
			return nil, fmt.Errorf("entity %s: %s role has threshold %d for %d threshold factors", e.Address, req.kind, req.threshold, n)
		}
		p.roles = append(p.roles, newPetitionForRole(req))
	}

	return p, nil
}

// Address returns the entity address.
func (p *PetitionForEntity) Address() address.Address {
	return p.address
}

// Roles returns the role petitions.
func (p *PetitionForEntity) Roles() []*PetitionForRole {
	return p.roles
}

// Status is the conjunction of the role statuses.
func (p *PetitionForEntity) Status() PetitionStatus {
	statuses := make([]PetitionStatus, len(p.roles))
	for i, r := range p.roles {
		statuses[i] = r.Status()
	}
	return allOf(statuses...)
}

// lists returns every factor list of every role.
func (p *PetitionForEntity) lists() []*PetitionForFactors {
	var out []*PetitionForFactors
	for _, r := range p.roles {
		out = append(out, r.lists()...)
	}
	return out
}

// References reports whether the factor source appears in any role.
func (p *PetitionForEntity) References(id factors.FactorSourceID) bool {
	return slices.ContainsFunc(p.lists(), func(l *PetitionForFactors) bool {
		return l.References(id)
	})
}

// instancesOf returns the distinct keys the factor source holds in this entity.
func (p *PetitionForEntity) instancesOf(id factors.FactorSourceID) []factors.HierarchicalDeterministicFactorInstance {
	var out []factors.HierarchicalDeterministicFactorInstance
	seen := make(map[factors.InstanceKey]bool)

	for _, l := range p.lists() {
		inst, ok := l.instanceOf(id)
		if !ok || seen[inst.Key()] {
			continue
		}
		seen[inst.Key()] = true
		out = append(out, inst)
	}

	return out
}

// addSignature records the signature in every list holding its instance.
func (p *PetitionForEntity) addSignature(sig HDSignature) bool {
	added := false
	for _, l := range p.lists() {
		inst, ok := l.instanceOf(sig.FactorSourceID())
		if ok && inst.Key() == sig.Instance.Key() {
			l.AddSignature(sig)
			added = true
		}
	}
	return added
}

// neglect records the neglect in every list referencing the factor source.
func (p *PetitionForEntity) neglect(n NeglectedFactor) {
	for _, l := range p.lists() {
		if l.References(n.FactorSourceID) {
			l.Neglect(n)
		}
	}
}

// clone returns a copy independent of p.
func (p *PetitionForEntity) clone() *PetitionForEntity {
	c := &PetitionForEntity{address: p.address, roles: make([]*PetitionForRole, len(p.roles))}
	for i, r := range p.roles {
		c.roles[i] = r.clone()
	}
	return c
}

// PetitionForTransaction tracks every entity that must authorize one signable.
type PetitionForTransaction[S Signable] struct {
	signable SignableWithEntities[S] // signable is the payload and its entities
	entities []*PetitionForEntity    // entities must all succeed
}

// NewPetitionForTransaction creates the petition of a signable for the purpose.
func NewPetitionForTransaction[S Signable](signable SignableWithEntities[S], purpose SigningPurpose) (*PetitionForTransaction[S], error) {
	if err := purpose.validate(); err != nil {
		return nil, err
	}

	p := &PetitionForTransaction[S]{signable: signable}

	for _, e := range signable.Entities() {
		ep, err := newPetitionForEntity(e, purpose)
		if err != nil {
			return nil, fmt.Errorf("petition for %s:\n%w", signable.PayloadID(), err)
		}
		p.entities = append(p.entities, ep)
	}

	return p, nil
}

// Signable returns the payload.
func (p *PetitionForTransaction[S]) Signable() S {
	return p.signable.Signable()
}

// PayloadID returns the payload id.
func (p *PetitionForTransaction[S]) PayloadID() PayloadID {
	return p.signable.PayloadID()
}

// Entities returns the entity petitions.
func (p *PetitionForTransaction[S]) Entities() []*PetitionForEntity {
	return p.entities
}

// Status is the conjunction of the entity statuses. No entities means nothing to authorize.
func (p *PetitionForTransaction[S]) Status() PetitionStatus {
	statuses := make([]PetitionStatus, len(p.entities))
	for i, e := range p.entities {
		statuses[i] = e.Status()
	}
	return allOf(statuses...)
}

// References reports whether any entity needs the factor source.
func (p *PetitionForTransaction[S]) References(id factors.FactorSourceID) bool {
	return slices.ContainsFunc(p.entities, func(e *PetitionForEntity) bool {
		return e.References(id)
	})
}

// FactorSourceIDs returns the referenced factor sources in order of first appearance.
func (p *PetitionForTransaction[S]) FactorSourceIDs() []factors.FactorSourceID {
	var ids []factors.FactorSourceID
	seen := make(map[factors.FactorSourceID]bool)

	for _, e := range p.entities {
		for _, l := range e.lists() {
			for _, inst := range l.instances {
				if !seen[inst.FactorSourceID] {
					seen[inst.FactorSourceID] = true
					ids = append(ids, inst.FactorSourceID)
				}
			}
		}
	}

	return ids
}

// InstancesOf returns the distinct keys of the factor source across entities.
func (p *PetitionForTransaction[S]) InstancesOf(id factors.FactorSourceID) []factors.HierarchicalDeterministicFactorInstance {
	var out []factors.HierarchicalDeterministicFactorInstance
	seen := make(map[factors.InstanceKey]bool)

	for _, e := range p.entities {
		for _, inst := range e.instancesOf(id) {
			if !seen[inst.Key()] {
				seen[inst.Key()] = true
				out = append(out, inst)
			}
		}
	}

	return out
}

// AddSignature records a signature over this payload.
// It panics if the payload differs or no entity holds the signing instance.
func (p *PetitionForTransaction[S]) AddSignature(sig HDSignature) {
	if sig.Payload != p.PayloadID() {
		panic(fmt.Sprintf("signature over %s added to petition for %s", sig.Payload, p.PayloadID()))
	}

	added := false
	for _, e := range p.entities {
		if e.addSignature(sig) {
			added = true
		}
	}

	if !added {
		panic(fmt.Sprintf("no entity of %s holds %s at %s", p.PayloadID(), sig.FactorSourceID(), sig.Instance.Path()))
	}
}

// Neglect records that the factor source will not sign this payload.
func (p *PetitionForTransaction[S]) Neglect(n NeglectedFactor) {
	for _, e := range p.entities {
		e.neglect(n)
	}
}

// StatusIfSkippedFactors previews the status if the factor sources were neglected.
// The petition itself is not modified. Sources that already signed are left as they are.
func (p *PetitionForTransaction[S]) StatusIfSkippedFactors(ids ...factors.FactorSourceID) PetitionStatus {
	return p.simulateSkip(ids).Status()
}

// EntitiesInvalidIfNeglected returns the entities that are not yet failed
// but would fail if the factor source were neglected.
func (p *PetitionForTransaction[S]) EntitiesInvalidIfNeglected(id factors.FactorSourceID) []address.Address {
	sim := p.simulateSkip([]factors.FactorSourceID{id})

	var out []address.Address
	for i, e := range p.entities {
		if e.Status() != Fail && sim.entities[i].Status() == Fail {
			out = append(out, e.address)
		}
	}

	return out
}

// simulateSkip returns a clone with the factor sources neglected as Simulation.
func (p *PetitionForTransaction[S]) simulateSkip(ids []factors.FactorSourceID) *PetitionForTransaction[S] {
	sim := p.clone()

	for _, id := range ids {
		for _, e := range sim.entities {
			for _, l := range e.lists() {
				if l.References(id) && !l.signed.Contains(id) {
					l.Neglect(NeglectedFactor{Reason: Simulation, FactorSourceID: id})
				}
			}
		}
	}

	return sim
}

// Signatures returns the distinct collected signatures.
func (p *PetitionForTransaction[S]) Signatures() []HDSignature {
	var out []HDSignature
	seen := make(map[signatureKey]bool)

	for _, e := range p.entities {
		for _, l := range e.lists() {
			for _, sig := range l.Signed() {
				if !seen[sig.key()] {
					seen[sig.key()] = true
					out = append(out, sig)
				}
			}
		}
	}

	return out
}

// NeglectedFactors returns the distinct neglected factor sources.
func (p *PetitionForTransaction[S]) NeglectedFactors() []NeglectedFactor {
	var out []NeglectedFactor
	seen := make(map[factors.FactorSourceID]bool)

	for _, e := range p.entities {
		for _, l := range e.lists() {
			for _, n := range l.NeglectedFactors() {
				if !seen[n.FactorSourceID] {
					seen[n.FactorSourceID] = true
					out = append(out, n)
				}
			}
		}
	}

	return out
}

// clone returns a copy independent of p.
func (p *PetitionForTransaction[S]) clone() *PetitionForTransaction[S] {
	c := &PetitionForTransaction[S]{signable: p.signable, entities: make([]*PetitionForEntity, len(p.entities))}
	for i, e := range p.entities {
		c.entities[i] = e.clone()
	}
	return c
}
