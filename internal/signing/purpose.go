package signing

import (
	"fmt"
	"slices"
	"strings"

	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/profile"
)

// SigningPurpose decides which factor instances of an entity must sign.
type SigningPurpose struct {
	rola  bool              // rola selects the authentication signing instance
	roles []matrix.RoleKind // roles must all be satisfied for transaction signing
}

// SignTX signs a transaction exercising one role.
func SignTX(role matrix.RoleKind) SigningPurpose {
	return SigningPurpose{roles: []matrix.RoleKind{role}}
}

// SignTXWithRoles signs a transaction that needs every listed role, e.g. recovery and confirmation.
func SignTXWithRoles(roles ...matrix.RoleKind) SigningPurpose {
	return SigningPurpose{roles: slices.Clone(roles)}
}

// ROLA signs a proof of ownership with the authentication signing instance.
func ROLA() SigningPurpose {
	return SigningPurpose{rola: true}
}

// IsROLA reports whether the purpose is proof of ownership.
func (p SigningPurpose) IsROLA() bool {
	return p.rola
}

// Roles returns the roles a transaction must satisfy.
func (p SigningPurpose) Roles() []matrix.RoleKind {
	return slices.Clone(p.roles)
}

// String returns "rola" or "signTX(<roles>)".
func (p SigningPurpose) String() string {
	if p.rola {
		return "rola"
	}

	names := make([]string, len(p.roles))
	for i, r := range p.roles {
		names[i] = r.String()
	}

	return "signTX(" + strings.Join(names, "+") + ")"
}

// validate rejects purposes naming no role.
func (p SigningPurpose) validate() error {
	if !p.rola && len(p.roles) == 0 {
		return fmt.Errorf("signing purpose names no role")
	}
	return nil
}

// roleRequirement is one role an entity must satisfy.
// Kind is zero for proof of ownership, which is not tied to a role.
type roleRequirement struct {
	kind             matrix.RoleKind
	threshold        uint8
	thresholdFactors []factors.HierarchicalDeterministicFactorInstance
	overrideFactors  []factors.HierarchicalDeterministicFactorInstance
}

// requirementsFor returns the roles the entity must satisfy for the purpose.
func (p SigningPurpose) requirementsFor(e profile.Entity) ([]roleRequirement, error) {
	if u := e.Security.Unsecured; u != nil {
		instance := u.TransactionSigning
		if p.rola && u.AuthenticationSigning != nil {
			instance = *u.AuthenticationSigning
		}

		kind := matrix.Primary
		if p.rola {
			kind = 0
		}

		return []roleRequirement{{
			kind:             kind,
			threshold:        1,
			thresholdFactors: []factors.HierarchicalDeterministicFactorInstance{instance},
		}}, nil
	}

	s := e.Security.Securified
	if s == nil {
		return nil, fmt.Errorf("entity %s has no security state", e.Address)
	}

	structure := s.SecurityStructure

	if p.rola {
		return []roleRequirement{{
			threshold:        1,
			thresholdFactors: []factors.HierarchicalDeterministicFactorInstance{structure.AuthenticationSigningFactor},
		}}, nil
	}

	reqs := make([]roleRequirement, 0, len(p.roles))
	for _, kind := range p.roles {
		role, err := structure.Matrix.Role(kind)
		if err != nil {
			return nil, fmt.Errorf("entity %s:\n%w", e.Address, err)
		}

		reqs = append(reqs, roleRequirement{
			kind:             kind,
			threshold:        role.Threshold(),
			thresholdFactors: role.ThresholdFactors(),
			overrideFactors:  role.OverrideFactors(),
		})
	}

	return reqs, nil
}
