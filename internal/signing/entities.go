package signing

import (
	"fmt"

	"WalletCore/internal/address"
	"WalletCore/internal/profile"
)

// EntityLookup resolves an address to the account or persona in the profile.
// *profile.Profile implements it.
type EntityLookup interface {
	EntityByAddress(addr address.Address) (profile.Entity, error)
}

// SignableWithEntities pairs a signable with the entities that must authorize it.
// Entities are resolved once, when the value is created.
type SignableWithEntities[S Signable] struct {
	signable S                // signable is the payload
	entities []profile.Entity // entities are resolved from EntitiesRequiringAuth
}

// NewSignableWithEntities resolves every entity the signable requires.
// Fails with an error wrapping profile.ErrEntityNotFound for unknown addresses.
func NewSignableWithEntities[S Signable](signable S, lookup EntityLookup) (SignableWithEntities[S], error) {
	seen := make(map[address.Address]bool)

	var entities []profile.Entity
	for _, addr := range signable.EntitiesRequiringAuth() {
		if seen[addr] {
			continue
		}
		seen[addr] = true

		e, err := lookup.EntityByAddress(addr)
		if err != nil {
			return SignableWithEntities[S]{}, fmt.Errorf("resolve entities of %s:\n%w", signable.PayloadID(), err)
		}

		entities = append(entities, e)
	}

	return SignableWithEntities[S]{signable: signable, entities: entities}, nil
}

// Signable returns the payload.
func (s SignableWithEntities[S]) Signable() S {
	return s.signable
}

// PayloadID returns the payload id.
func (s SignableWithEntities[S]) PayloadID() PayloadID {
	return s.signable.PayloadID()
}

// Entities returns the resolved entities.
func (s SignableWithEntities[S]) Entities() []profile.Entity {
	return s.entities
}
