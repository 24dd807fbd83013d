// Package profile holds the user's factor sources, accounts, personas and security structures.
package profile

import (
	"errors"
	"fmt"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
)

// ErrEntityNotFound is returned when no account or persona has the address.
var ErrEntityNotFound = errors.New("entity not found")

// UnsecuredControl is a single key controlling an entity.
type UnsecuredControl struct {
	TransactionSigning    factors.HierarchicalDeterministicFactorInstance  `json:"transactionSigning"`              // TransactionSigning signs transactions
	AuthenticationSigning *factors.HierarchicalDeterministicFactorInstance `json:"authenticationSigning,omitempty"` // AuthenticationSigning signs ROLA challenges, if set
}

// SecurifiedControl is a security structure controlling an entity through an access controller.
type SecurifiedControl struct {
	AccessControllerAddress string                                    `json:"accessControllerAddress"` // AccessControllerAddress is the on-ledger controller
	SecurityStructure       matrix.SecurityStructureOfFactorInstances `json:"securityStructure"`       // SecurityStructure holds the entity's keys per role
}

// SecurityState is either unsecured or securified. Exactly one field is set.
type SecurityState struct {
	Unsecured  *UnsecuredControl  `json:"unsecured,omitempty"`  // Unsecured is set before securifying
	Securified *SecurifiedControl `json:"securified,omitempty"` // Securified is set after securifying
}

// Entity is an account or a persona.
type Entity struct {
	Address     address.Address `json:"address"`          // Address identifies the entity on ledger
	DisplayName string          `json:"displayName"`      // DisplayName is the user chosen name
	Security    SecurityState   `json:"securityState"`    // Security is how the entity is controlled
	Hidden      bool            `json:"hidden,omitempty"` // Hidden entities are not shown but still sign
}

// NewUnsecuredEntity creates an entity whose address is derived from its transaction signing key.
func NewUnsecuredEntity(displayName string, instance factors.HierarchicalDeterministicFactorInstance) (Entity, error) {
	if instance.Path().KeyKind != factors.TransactionSigning {
		return Entity{}, fmt.Errorf("entity key %s is not a transaction signing key", instance.Path())
	}

	return Entity{
		Address:     instance.EntityAddress(),
		DisplayName: displayName,
		Security: SecurityState{
			Unsecured: &UnsecuredControl{TransactionSigning: instance},
		},
	}, nil
}

// Kind returns account or identity.
func (e Entity) Kind() address.EntityKind {
	return e.Address.Kind
}

// IsAccount reports whether the entity is an account.
func (e Entity) IsAccount() bool {
	return e.Address.Kind == address.Account
}

// IsSecurified reports whether a security structure controls the entity.
func (e Entity) IsSecurified() bool {
	return e.Security.Securified != nil
}

// Validate checks that exactly one control is set and that a security structure is valid.
func (e Entity) Validate() error {
	if e.Address.IsZero() {
		return fmt.Errorf("entity %q has no address", e.DisplayName)
	}

	if (e.Security.Unsecured == nil) == (e.Security.Securified == nil) {
		return fmt.Errorf("entity %s must be either unsecured or securified", e.Address)
	}

	if e.IsSecurified() {
		if res := e.Security.Securified.SecurityStructure.Matrix.Validate(); !res.IsValid() {
			return fmt.Errorf("entity %s security structure:\n%w", e.Address, res.Err())
		}
	}

	return nil
}

// Securify replaces the unsecured control with a security structure.
func (e *Entity) Securify(accessController string, structure matrix.SecurityStructureOfFactorInstances) error {
	if e.IsSecurified() {
		return fmt.Errorf("entity %s is already securified", e.Address)
	}

	if res := structure.Matrix.Validate(); !res.IsValid() {
		return fmt.Errorf("securify %s:\n%w", e.Address, res.Err())
	}

	e.Security = SecurityState{
		Securified: &SecurifiedControl{
			AccessControllerAddress: accessController,
			SecurityStructure:       structure,
		},
	}

	return nil
}

// FactorInstances returns every key controlling the entity.
func (e Entity) FactorInstances() []factors.HierarchicalDeterministicFactorInstance {
	switch {
	case e.Security.Unsecured != nil:
		out := []factors.HierarchicalDeterministicFactorInstance{e.Security.Unsecured.TransactionSigning}
		if auth := e.Security.Unsecured.AuthenticationSigning; auth != nil {
			out = append(out, *auth)
		}
		return out

	case e.Security.Securified != nil:
		s := e.Security.Securified.SecurityStructure
		return append(s.Matrix.AllFactors(), s.AuthenticationSigningFactor)

	default:
		return nil
	}
}

// FactorSourceIDs returns the distinct factor sources controlling the entity.
func (e Entity) FactorSourceIDs() []factors.FactorSourceID {
	seen := make(map[factors.FactorSourceID]bool)

	var ids []factors.FactorSourceID
	for _, inst := range e.FactorInstances() {
		if !seen[inst.FactorSourceID] {
			seen[inst.FactorSourceID] = true
			ids = append(ids, inst.FactorSourceID)
		}
	}

	return ids
}
