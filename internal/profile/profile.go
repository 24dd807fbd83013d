package profile

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
)

// ErrSecurityStructureNotFound is returned for unknown structure ids.
var ErrSecurityStructureNotFound = errors.New("security structure not found")

// Header identifies a profile.
type Header struct {
	ID           uuid.UUID         `json:"id"`           // ID is stable for the life of the profile
	Network      address.NetworkID `json:"network"`      // Network is the network entities live on
	CreatedOn    time.Time         `json:"createdOn"`    // CreatedOn is when the profile was created
	LastModified time.Time         `json:"lastModified"` // LastModified is when the profile last changed
}

// Profile is the in-memory wallet state.
type Profile struct {
	Header             Header                                      `json:"header"`             // Header identifies the profile
	FactorSources      factors.FactorSources                       `json:"factorSources"`      // FactorSources are every known source
	Accounts           []Entity                                    `json:"accounts"`           // Accounts in creation order
	Personas           []Entity                                    `json:"personas"`           // Personas in creation order
	SecurityStructures []matrix.SecurityStructureOfFactorSourceIDs `json:"securityStructures"` // SecurityStructures are user defined templates
}

// New creates an empty profile on a network.
func New(network address.NetworkID, sources ...factors.FactorSource) (*Profile, error) {
	fs, err := factors.NewFactorSources(sources...)
	if err != nil {
		return nil, fmt.Errorf("new profile:\n%w", err)
	}

	now := time.Now().UTC()

	return &Profile{
		Header: Header{
			ID:           uuid.New(),
			Network:      network,
			CreatedOn:    now,
			LastModified: now,
		},
		FactorSources: fs,
	}, nil
}

// touch updates the modification time.
func (p *Profile) touch() {
	p.Header.LastModified = time.Now().UTC()
}

// AddFactorSource adds a new factor source.
func (p *Profile) AddFactorSource(source factors.FactorSource) error {
	if err := p.FactorSources.Add(source); err != nil {
		return err
	}
	p.touch()
	return nil
}

// AddEntity adds an account or persona.
// Every factor source controlling it must already be in the profile.
func (p *Profile) AddEntity(e Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	if e.Address.Network != p.Header.Network {
		return fmt.Errorf("entity %s is on network %s, profile is on %s", e.Address, e.Address.Network, p.Header.Network)
	}

	if _, err := p.EntityByAddress(e.Address); err == nil {
		return fmt.Errorf("entity %s already exists", e.Address)
	}

	for _, id := range e.FactorSourceIDs() {
		if !p.FactorSources.Contains(id) {
			return fmt.Errorf("entity %s:\n%w: %s", e.Address, factors.ErrFactorSourceDiscrepancy, id)
		}
	}

	if e.IsAccount() {
		p.Accounts = append(p.Accounts, e)
	} else {
		p.Personas = append(p.Personas, e)
	}

	p.touch()

	return nil
}

// UpdateEntity replaces the entity with the same address.
func (p *Profile) UpdateEntity(e Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}

	list := p.Personas
	if e.IsAccount() {
		list = p.Accounts
	}

	i := slices.IndexFunc(list, func(x Entity) bool { return x.Address == e.Address })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, e.Address)
	}

	list[i] = e
	p.touch()

	return nil
}

// EntityByAddress finds an account or persona.
func (p *Profile) EntityByAddress(addr address.Address) (Entity, error) {
	list := p.Personas
	if addr.Kind == address.Account {
		list = p.Accounts
	}

	for _, e := range list {
		if e.Address == addr {
			return e, nil
		}
	}

	return Entity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, addr)
}

// Entities returns accounts followed by personas.
func (p *Profile) Entities() []Entity {
	return slices.Concat(p.Accounts, p.Personas)
}

// AddSecurityStructure stores a structure whose factor sources are all known.
func (p *Profile) AddSecurityStructure(s matrix.SecurityStructureOfFactorSourceIDs) error {
	if _, err := matrix.ResolveSecurityStructure(s, p.FactorSources); err != nil {
		return err
	}

	if res := s.Matrix.Validate(); !res.IsValid() {
		return res.Err()
	}

	if slices.ContainsFunc(p.SecurityStructures, func(x matrix.SecurityStructureOfFactorSourceIDs) bool { return x.ID() == s.ID() }) {
		return fmt.Errorf("security structure %s already exists", s.ID())
	}

	p.SecurityStructures = append(p.SecurityStructures, s)
	p.touch()

	return nil
}

// SecurityStructure returns the structure with the given id.
func (p *Profile) SecurityStructure(id matrix.SecurityStructureID) (matrix.SecurityStructureOfFactorSourceIDs, error) {
	for _, s := range p.SecurityStructures {
		if s.ID() == id {
			return s, nil
		}
	}
	return matrix.SecurityStructureOfFactorSourceIDs{}, fmt.Errorf("%w: %s", ErrSecurityStructureNotFound, id)
}

// MarkFactorSourcesUsed stamps the sources as used at the given time.
// Unknown ids are ignored.
func (p *Profile) MarkFactorSourcesUsed(ids []factors.FactorSourceID, at time.Time) {
	for _, id := range ids {
		source, ok := p.FactorSources.Get(id)
		if !ok {
			continue
		}

		source.Common.LastUsedOn = at.UTC()
		p.FactorSources.Update(source)
	}
	p.touch()
}
