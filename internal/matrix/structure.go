package matrix

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"WalletCore/internal/factors"
)

// ErrMissingAuthenticationSigningFactor is returned when a structure has no ROLA factor.
var ErrMissingAuthenticationSigningFactor = errors.New("missing authentication signing factor")

// SecurityStructureID identifies a security structure.
type SecurityStructureID = uuid.UUID

// Metadata describes a security structure to the user.
type Metadata struct {
	ID            SecurityStructureID `json:"id"`            // ID is stable across updates
	DisplayName   string              `json:"displayName"`   // DisplayName is the user chosen name
	CreatedOn     time.Time           `json:"createdOn"`     // CreatedOn is when the structure was created
	LastUpdatedOn time.Time           `json:"lastUpdatedOn"` // LastUpdatedOn is when the structure last changed
}

// NewMetadata creates metadata with a fresh id.
func NewMetadata(displayName string) Metadata {
	now := time.Now().UTC()
	return Metadata{
		ID:            uuid.New(),
		DisplayName:   displayName,
		CreatedOn:     now,
		LastUpdatedOn: now,
	}
}

// SecurityStructure is a matrix plus the factor used for proof of ownership.
type SecurityStructure[F Factor] struct {
	Metadata                    Metadata  `json:"metadata"`                    // Metadata names the structure
	Matrix                      Matrix[F] `json:"matrix"`                      // Matrix holds the three roles
	AuthenticationSigningFactor F         `json:"authenticationSigningFactor"` // AuthenticationSigningFactor signs ROLA challenges
}

// SecurityStructureOfFactorSourceIDs is the form stored in a profile.
type SecurityStructureOfFactorSourceIDs = SecurityStructure[factors.FactorSourceID]

// SecurityStructureOfFactorSources is the form shown to the user.
type SecurityStructureOfFactorSources = SecurityStructure[factors.FactorSource]

// SecurityStructureOfFactorInstances is the form applied to an entity.
type SecurityStructureOfFactorInstances = SecurityStructure[factors.HierarchicalDeterministicFactorInstance]

// NewSecurityStructure creates a structure with fresh metadata.
func NewSecurityStructure(displayName string, m MatrixOfFactorSourceIDs, authSigning factors.FactorSourceID) (SecurityStructureOfFactorSourceIDs, error) {
	if authSigning.IsZero() {
		return SecurityStructureOfFactorSourceIDs{}, ErrMissingAuthenticationSigningFactor
	}

	return SecurityStructureOfFactorSourceIDs{
		Metadata:                    NewMetadata(displayName),
		Matrix:                      m,
		AuthenticationSigningFactor: authSigning,
	}, nil
}

// ID returns the structure id.
func (s SecurityStructure[F]) ID() SecurityStructureID {
	return s.Metadata.ID
}

// IDs converts the structure to factor source ids.
func (s SecurityStructure[F]) IDs() SecurityStructureOfFactorSourceIDs {
	return SecurityStructureOfFactorSourceIDs{
		Metadata:                    s.Metadata,
		Matrix:                      s.Matrix.IDs(),
		AuthenticationSigningFactor: s.AuthenticationSigningFactor.SourceID(),
	}
}

// ResolveSecurityStructure looks every id up in sources.
func ResolveSecurityStructure(s SecurityStructureOfFactorSourceIDs, sources factors.FactorSources) (SecurityStructureOfFactorSources, error) {
	m, err := ResolveMatrix(s.Matrix, sources)
	if err != nil {
		return SecurityStructureOfFactorSources{}, fmt.Errorf("resolve structure %s:\n%w", s.Metadata.ID, err)
	}

	auth, ok := sources.Get(s.AuthenticationSigningFactor)
	if !ok {
		return SecurityStructureOfFactorSources{}, fmt.Errorf("%w: %s", factors.ErrFactorSourceDiscrepancy, s.AuthenticationSigningFactor)
	}

	return SecurityStructureOfFactorSources{
		Metadata:                    s.Metadata,
		Matrix:                      m,
		AuthenticationSigningFactor: auth,
	}, nil
}
