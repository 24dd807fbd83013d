package factors

import (
	"fmt"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
)

// HierarchicalDeterministicPublicKey is a public key together with the path it was derived at.
type HierarchicalDeterministicPublicKey struct {
	PublicKey      crypto.PublicKey `json:"publicKey"`      // PublicKey is the derived key
	DerivationPath DerivationPath   `json:"derivationPath"` // DerivationPath is where it was derived
}

// HierarchicalDeterministicFactorInstance is one derived key of a factor source.
// It is owned by exactly one entity. For trusted contacts the key is derived on the contact's device.
type HierarchicalDeterministicFactorInstance struct {
	FactorSourceID FactorSourceID                     `json:"factorSourceId"` // FactorSourceID is the source that derived the key
	PublicKey      HierarchicalDeterministicPublicKey `json:"publicKey"`      // PublicKey is the derived key and its path
}

// NewHDFactorInstance creates an instance, checking the key curve against the path scheme.
func NewHDFactorInstance(source FactorSourceID, key crypto.PublicKey, path DerivationPath) (HierarchicalDeterministicFactorInstance, error) {
	if err := path.Validate(); err != nil {
		return HierarchicalDeterministicFactorInstance{}, fmt.Errorf("invalid derivation path:\n%w", err)
	}

	if key.Curve != path.Curve() {
		return HierarchicalDeterministicFactorInstance{}, fmt.Errorf("key curve %s does not match path curve %s", key.Curve, path.Curve())
	}

	return HierarchicalDeterministicFactorInstance{
		FactorSourceID: source,
		PublicKey: HierarchicalDeterministicPublicKey{
			PublicKey:      key,
			DerivationPath: path,
		},
	}, nil
}

// SourceID returns the factor source id so instances satisfy Factor.
func (i HierarchicalDeterministicFactorInstance) SourceID() FactorSourceID {
	return i.FactorSourceID
}

// Path returns the derivation path of the instance.
func (i HierarchicalDeterministicFactorInstance) Path() DerivationPath {
	return i.PublicKey.DerivationPath
}

// Key returns the comparable identity of the instance.
func (i HierarchicalDeterministicFactorInstance) Key() InstanceKey {
	return InstanceKey{SourceID: i.FactorSourceID, Path: i.PublicKey.DerivationPath}
}

// EntityAddress returns the address an unsecurified entity controlled by this key would have.
func (i HierarchicalDeterministicFactorInstance) EntityAddress() address.Address {
	path := i.PublicKey.DerivationPath
	return address.FromPublicKey(path.EntityKind, path.Network, i.PublicKey.PublicKey)
}

// Equal reports whether both instances share source, path and key.
func (i HierarchicalDeterministicFactorInstance) Equal(other HierarchicalDeterministicFactorInstance) bool {
	return i.Key() == other.Key() && i.PublicKey.PublicKey.Equal(other.PublicKey.PublicKey)
}

// FactorInstance converts the instance into its general badge form.
func (i HierarchicalDeterministicFactorInstance) FactorInstance() FactorInstance {
	key := i.PublicKey
	return FactorInstance{
		FactorSourceID: i.FactorSourceID,
		Badge:          Badge{Virtual: &key},
	}
}

// InstanceKey identifies a factor instance by source and path.
type InstanceKey struct {
	SourceID FactorSourceID // SourceID is the deriving factor source
	Path     DerivationPath // Path is the derivation path
}

// PhysicalBadge is a non fungible badge held by the factor owner.
type PhysicalBadge struct {
	ResourceAddress string `json:"resourceAddress"` // ResourceAddress is the badge resource
	LocalID         string `json:"localId"`         // LocalID is the badge's local id
}

// Badge proves control of a factor instance. Exactly one field is set.
type Badge struct {
	Virtual  *HierarchicalDeterministicPublicKey `json:"virtual,omitempty"`  // Virtual is an HD public key
	Physical *PhysicalBadge                      `json:"physical,omitempty"` // Physical is a held badge
}

// FactorInstance is a factor source bound to a badge.
type FactorInstance struct {
	FactorSourceID FactorSourceID `json:"factorSourceId"` // FactorSourceID is the source
	Badge          Badge          `json:"badge"`          // Badge proves control
}

// SourceID returns the factor source id so instances satisfy Factor.
func (f FactorInstance) SourceID() FactorSourceID {
	return f.FactorSourceID
}

// HD returns the hierarchical deterministic form of a virtual badge instance.
func (f FactorInstance) HD() (HierarchicalDeterministicFactorInstance, error) {
	if f.Badge.Virtual == nil {
		return HierarchicalDeterministicFactorInstance{}, fmt.Errorf("factor instance of %s has a physical badge", f.FactorSourceID)
	}

	return HierarchicalDeterministicFactorInstance{
		FactorSourceID: f.FactorSourceID,
		PublicKey:      *f.Badge.Virtual,
	}, nil
}
