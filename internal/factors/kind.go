// Package factors models factor sources, their identifiers and the key instances derived from them.
package factors

import (
	"fmt"
	"sort"
)

// FactorSourceKind is the kind of physical or logical key source.
type FactorSourceKind uint8

const (
	// Device is the on-device keychain mnemonic.
	Device FactorSourceKind = iota + 1

	// LedgerHQHardwareWallet is a Ledger hardware wallet.
	LedgerHQHardwareWallet

	// OffDeviceMnemonic is a mnemonic the user keeps off the device and types in on demand.
	OffDeviceMnemonic

	// ArculusCard is an Arculus NFC smart card.
	ArculusCard

	// Password is a key derived from a user chosen password.
	Password

	// TrustedContact is another person's account acting as a factor.
	TrustedContact
)

// frictionRank orders kinds from least to most user effort.
// Device is always first; NFC cards and hardware wallets are always last.
var frictionRank = map[FactorSourceKind]int{
	Device:                 0,
	Password:               1,
	OffDeviceMnemonic:      2,
	TrustedContact:         3,
	ArculusCard:            4,
	LedgerHQHardwareWallet: 5,
}

// kindNames maps kinds to their text form.
var kindNames = map[FactorSourceKind]string{
	Device:                 "device",
	LedgerHQHardwareWallet: "ledgerHQHardwareWallet",
	OffDeviceMnemonic:      "offDeviceMnemonic",
	ArculusCard:            "arculusCard",
	Password:               "password",
	TrustedContact:         "trustedContact",
}

// AllKinds returns every known kind in friction order.
func AllKinds() []FactorSourceKind {
	kinds := make([]FactorSourceKind, 0, len(frictionRank))
	for k := range frictionRank {
		kinds = append(kinds, k)
	}

	SortByFriction(kinds)

	return kinds
}

// IsValid reports whether the kind is known.
func (k FactorSourceKind) IsValid() bool {
	_, ok := frictionRank[k]
	return ok
}

// Friction returns the position of the kind in the friction order (lower is tried first).
func (k FactorSourceKind) Friction() int {
	if rank, ok := frictionRank[k]; ok {
		return rank
	}
	return len(frictionRank)
}

// IsHardware reports whether the kind requires external hardware.
func (k FactorSourceKind) IsHardware() bool {
	return k == LedgerHQHardwareWallet || k == ArculusCard
}

// String returns the text form of the kind.
func (k FactorSourceKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k FactorSourceKind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, fmt.Errorf("unknown factor source kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FactorSourceKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// ParseKind parses the text form of a kind.
func ParseKind(s string) (FactorSourceKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown factor source kind %q", s)
}

// SortByFriction sorts kinds in place from least to most friction.
func SortByFriction(kinds []FactorSourceKind) {
	sort.SliceStable(kinds, func(i, j int) bool {
		return kinds[i].Friction() < kinds[j].Friction()
	})
}
