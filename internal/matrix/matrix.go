package matrix

import (
	"fmt"

	"WalletCore/internal/factors"
)

// DefaultDaysUntilAutoConfirm is used when the user does not choose a delay.
const DefaultDaysUntilAutoConfirm uint16 = 14

// Matrix bundles the three roles of a security structure.
type Matrix[F Factor] struct {
	Primary              Role[F] `json:"primary"`              // Primary signs everyday transactions
	Recovery             Role[F] `json:"recovery"`             // Recovery proposes a new structure
	Confirmation         Role[F] `json:"confirmation"`         // Confirmation confirms a recovery
	DaysUntilAutoConfirm uint16  `json:"daysUntilAutoConfirm"` // DaysUntilAutoConfirm confirms a recovery without the confirmation role
}

// MatrixOfFactorSourceIDs references factors by id.
type MatrixOfFactorSourceIDs = Matrix[factors.FactorSourceID]

// MatrixOfFactorSources references resolved factor sources.
type MatrixOfFactorSources = Matrix[factors.FactorSource]

// MatrixOfFactorInstances references the derived keys of one entity.
type MatrixOfFactorInstances = Matrix[factors.HierarchicalDeterministicFactorInstance]

// Role returns the role of the given kind.
func (m Matrix[F]) Role(kind RoleKind) (Role[F], error) {
	switch kind {
	case Primary:
		return m.Primary, nil
	case Recovery:
		return m.Recovery, nil
	case Confirmation:
		return m.Confirmation, nil
	default:
		return Role[F]{}, fmt.Errorf("unknown role kind %d", uint8(kind))
	}
}

// AllFactors returns each factor once, primary first, then recovery, then confirmation.
func (m Matrix[F]) AllFactors() []F {
	seen := make(map[factors.FactorSourceID]bool)

	var out []F
	for _, r := range []Role[F]{m.Primary, m.Recovery, m.Confirmation} {
		for _, f := range r.AllFactors() {
			if seen[f.SourceID()] {
				continue
			}
			seen[f.SourceID()] = true
			out = append(out, f)
		}
	}

	return out
}

// IDs converts the matrix to factor source ids.
func (m Matrix[F]) IDs() MatrixOfFactorSourceIDs {
	return MatrixOfFactorSourceIDs{
		Primary:              m.Primary.IDs(),
		Recovery:             m.Recovery.IDs(),
		Confirmation:         m.Confirmation.IDs(),
		DaysUntilAutoConfirm: m.DaysUntilAutoConfirm,
	}
}

// MapMatrix converts every factor of every role.
func MapMatrix[F, G Factor](m Matrix[F], fn func(F) (G, error)) (Matrix[G], error) {
	primary, err := MapRole(m.Primary, fn)
	if err != nil {
		return Matrix[G]{}, err
	}

	recovery, err := MapRole(m.Recovery, fn)
	if err != nil {
		return Matrix[G]{}, err
	}

	confirmation, err := MapRole(m.Confirmation, fn)
	if err != nil {
		return Matrix[G]{}, err
	}

	return Matrix[G]{
		Primary:              primary,
		Recovery:             recovery,
		Confirmation:         confirmation,
		DaysUntilAutoConfirm: m.DaysUntilAutoConfirm,
	}, nil
}

// ResolveMatrix looks every id up in sources.
func ResolveMatrix(m MatrixOfFactorSourceIDs, sources factors.FactorSources) (MatrixOfFactorSources, error) {
	return MapMatrix(m, func(id factors.FactorSourceID) (factors.FactorSource, error) {
		source, ok := sources.Get(id)
		if !ok {
			return factors.FactorSource{}, fmt.Errorf("%w: %s", factors.ErrFactorSourceDiscrepancy, id)
		}
		return source, nil
	})
}
