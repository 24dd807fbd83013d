// Package address encodes entity (account and identity) addresses.
package address

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"WalletCore/internal/crypto"
)

// BodySize is the number of hash bytes carried by an address.
const BodySize = 29

// NetworkID identifies the network an address belongs to.
type NetworkID uint8

const (
	// Mainnet is the production network.
	Mainnet NetworkID = 0x01

	// Stokenet is the public test network.
	Stokenet NetworkID = 0x02

	// Simulator is the local simulator network.
	Simulator NetworkID = 0xf2
)

// hrpSuffix returns the bech32 human readable part suffix for the network.
func (n NetworkID) hrpSuffix() (string, error) {
	switch n {
	case Mainnet:
		return "main", nil
	case Stokenet:
		return "test", nil
	case Simulator:
		return "sim", nil
	default:
		return "", fmt.Errorf("unknown network id %d", uint8(n))
	}
}

// String returns the network's short name.
func (n NetworkID) String() string {
	s, err := n.hrpSuffix()
	if err != nil {
		return fmt.Sprintf("network(%d)", uint8(n))
	}
	return s
}

// ParseNetwork parses the short name returned by String.
func ParseNetwork(s string) (NetworkID, error) {
	for _, n := range []NetworkID{Mainnet, Stokenet, Simulator} {
		if n.String() == s {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unknown network %q", s)
}

// EntityKind distinguishes accounts from identities (personas).
type EntityKind uint8

const (
	// Account addresses hold assets.
	Account EntityKind = 0x51

	// Identity addresses back personas used to log in to dApps.
	Identity EntityKind = 0x52
)

// String returns the bech32 prefix of the kind.
func (k EntityKind) String() string {
	switch k {
	case Account:
		return "account"
	case Identity:
		return "identity"
	default:
		return fmt.Sprintf("entity(%d)", uint8(k))
	}
}

// Address is a comparable entity address.
type Address struct {
	Kind    EntityKind     // Kind is account or identity
	Network NetworkID      // Network is the network the entity lives on
	Body    [BodySize]byte // Body is the tail of BLAKE3(public key)
}

// FromPublicKey derives the address of an entity controlled by the public key.
func FromPublicKey(kind EntityKind, network NetworkID, key crypto.PublicKey) Address {
	h := crypto.HashOf(key.Bytes)

	addr := Address{Kind: kind, Network: network}
	copy(addr.Body[:], h[crypto.HashSize-BodySize:])

	return addr
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the bech32m encoding, or an empty string for invalid addresses.
func (a Address) String() string {
	s, err := a.Encode()
	if err != nil {
		return ""
	}
	return s
}

// Encode returns the bech32m encoding of the address.
// Format: hrp = "<kind>_<network>", data = [1B kind] [29B body]
func (a Address) Encode() (string, error) {
	suffix, err := a.Network.hrpSuffix()
	if err != nil {
		return "", err
	}

	if a.Kind != Account && a.Kind != Identity {
		return "", fmt.Errorf("unknown entity kind %d", uint8(a.Kind))
	}

	payload := make([]byte, 0, 1+BodySize)
	payload = append(payload, byte(a.Kind))
	payload = append(payload, a.Body[:]...)

	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits:\n%w", err)
	}

	return bech32.EncodeM(a.Kind.String()+"_"+suffix, conv)
}

// Parse decodes a bech32m address.
func Parse(s string) (Address, error) {
	hrp, data, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return Address{}, fmt.Errorf("decode bech32:\n%w", err)
	}

	if version != bech32.VersionM {
		return Address{}, fmt.Errorf("address %q is not bech32m", s)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("convert bits:\n%w", err)
	}

	if len(payload) != 1+BodySize {
		return Address{}, fmt.Errorf("invalid address payload size: got %d, want %d", len(payload), 1+BodySize)
	}

	kindPrefix, netSuffix, ok := strings.Cut(hrp, "_")
	if !ok {
		return Address{}, fmt.Errorf("malformed address prefix %q", hrp)
	}

	addr := Address{Kind: EntityKind(payload[0])}
	copy(addr.Body[:], payload[1:])

	if addr.Kind.String() != kindPrefix {
		return Address{}, fmt.Errorf("address prefix %q does not match entity kind %s", kindPrefix, addr.Kind)
	}

	switch netSuffix {
	case "main":
		addr.Network = Mainnet
	case "test":
		addr.Network = Stokenet
	case "sim":
		addr.Network = Simulator
	default:
		return Address{}, fmt.Errorf("unknown network in address prefix %q", hrp)
	}

	return addr, nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	s, err := a.Encode()
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}
