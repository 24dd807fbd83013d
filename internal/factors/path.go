package factors

import (
	"fmt"
	"strconv"
	"strings"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
)

// Scheme is the derivation path scheme, which fixes the curve.
type Scheme uint8

const (
	// CAP26 paths derive Curve25519 keys.
	CAP26 Scheme = iota + 1

	// BIP44Olympia paths derive secp256k1 keys (legacy accounts).
	BIP44Olympia

	// EIP2333 paths derive BLS12-381 keys (validator keys).
	EIP2333
)

// Curve returns the curve keys on this scheme live on.
func (s Scheme) Curve() crypto.Curve {
	switch s {
	case CAP26:
		return crypto.Curve25519
	case BIP44Olympia:
		return crypto.Secp256k1
	case EIP2333:
		return crypto.BLS12381
	default:
		return 0
	}
}

// KeyKind is what a derived key is used for.
type KeyKind uint8

const (
	// TransactionSigning keys sign transaction intents.
	TransactionSigning KeyKind = iota + 1

	// AuthenticationSigning keys sign ROLA challenges.
	AuthenticationSigning
)

// String returns the text form of the key kind.
func (k KeyKind) String() string {
	switch k {
	case TransactionSigning:
		return "transactionSigning"
	case AuthenticationSigning:
		return "authenticationSigning"
	default:
		return fmt.Sprintf("keyKind(%d)", uint8(k))
	}
}

const (
	// hardened marks a hardened path component.
	hardened uint32 = 1 << 31

	// SecurifiedSpaceOffset is added to the index of keys in the securified key space.
	SecurifiedSpaceOffset uint32 = 1 << 30

	// cap26Purpose and cap26CoinType are the fixed CAP26 prefix.
	cap26Purpose  = 44
	cap26CoinType = 1022

	// eip2333Purpose and eip2333CoinType are the fixed EIP-2333 prefix.
	eip2333Purpose  = 12381
	eip2333CoinType = 3600
)

// entity and key kind path components for CAP26.
const (
	cap26Account        = 525
	cap26Identity       = 618
	cap26Transaction    = 1460
	cap26Authentication = 1678
)

// DerivationPath locates one key of a factor source. It is comparable.
type DerivationPath struct {
	Scheme     Scheme             // Scheme fixes the path layout and curve
	Network    address.NetworkID  // Network is the network of the entity
	EntityKind address.EntityKind // EntityKind is account or identity
	KeyKind    KeyKind            // KeyKind is transaction or authentication signing
	Index      uint32             // Index is the last path component (without hardening bit)
}

// NewAccountPath returns the CAP26 transaction signing path for an account.
func NewAccountPath(network address.NetworkID, index uint32) DerivationPath {
	return DerivationPath{
		Scheme:     CAP26,
		Network:    network,
		EntityKind: address.Account,
		KeyKind:    TransactionSigning,
		Index:      index,
	}
}

// NewIdentityPath returns the CAP26 transaction signing path for an identity.
func NewIdentityPath(network address.NetworkID, index uint32) DerivationPath {
	return DerivationPath{
		Scheme:     CAP26,
		Network:    network,
		EntityKind: address.Identity,
		KeyKind:    TransactionSigning,
		Index:      index,
	}
}

// Curve returns the curve of keys derived at this path.
func (p DerivationPath) Curve() crypto.Curve {
	return p.Scheme.Curve()
}

// IsSecurified reports whether the index lies in the securified key space.
func (p DerivationPath) IsSecurified() bool {
	return p.Index >= SecurifiedSpaceOffset
}

// WithKeyKind returns a copy of the path with another key kind.
func (p DerivationPath) WithKeyKind(kind KeyKind) DerivationPath {
	p.KeyKind = kind
	return p
}

// Validate checks that the path is well formed for its scheme.
func (p DerivationPath) Validate() error {
	if p.Index >= hardened {
		return fmt.Errorf("index %d overflows the hardened range", p.Index)
	}

	switch p.Scheme {
	case CAP26:
		if _, err := p.entityComponent(); err != nil {
			return err
		}
		if _, err := p.keyKindComponent(); err != nil {
			return err
		}
		if p.Network == 0 {
			return fmt.Errorf("cap26 path requires a network")
		}
		return nil

	case BIP44Olympia, EIP2333:
		return nil

	default:
		return fmt.Errorf("unknown derivation scheme %d", uint8(p.Scheme))
	}
}

// entityComponent returns the CAP26 entity kind component.
func (p DerivationPath) entityComponent() (uint32, error) {
	switch p.EntityKind {
	case address.Account:
		return cap26Account, nil
	case address.Identity:
		return cap26Identity, nil
	default:
		return 0, fmt.Errorf("unknown entity kind %d", uint8(p.EntityKind))
	}
}

// keyKindComponent returns the CAP26 key kind component.
func (p DerivationPath) keyKindComponent() (uint32, error) {
	switch p.KeyKind {
	case TransactionSigning:
		return cap26Transaction, nil
	case AuthenticationSigning:
		return cap26Authentication, nil
	default:
		return 0, fmt.Errorf("unknown key kind %d", uint8(p.KeyKind))
	}
}

// String returns the BIP32 style text form.
//
//	CAP26:        m/44H/1022H/<network>H/<525|618>H/<1460|1678>H/<index>H
//	BIP44Olympia: m/44H/1022H/0H/0/<index>H
//	EIP2333:      m/12381/3600/<index>/0/0
func (p DerivationPath) String() string {
	switch p.Scheme {
	case CAP26:
		entity, _ := p.entityComponent()
		keyKind, _ := p.keyKindComponent()
		return fmt.Sprintf("m/%dH/%dH/%dH/%dH/%dH/%dH", cap26Purpose, cap26CoinType, p.Network, entity, keyKind, p.Index)
	case BIP44Olympia:
		return fmt.Sprintf("m/%dH/%dH/0H/0/%dH", cap26Purpose, cap26CoinType, p.Index)
	case EIP2333:
		return fmt.Sprintf("m/%d/%d/%d/0/0", eip2333Purpose, eip2333CoinType, p.Index)
	default:
		return fmt.Sprintf("scheme(%d)/%d", uint8(p.Scheme), p.Index)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p DerivationPath) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DerivationPath) UnmarshalText(text []byte) error {
	parsed, err := ParseDerivationPath(string(text))
	if err != nil {
		return err
	}

	*p = parsed

	return nil
}

// pathComponent is one parsed component of a path.
type pathComponent struct {
	value    uint32 // value is the component without hardening
	hardened bool   // hardened is true for components ending in H or '
}

// ParseDerivationPath parses the text form produced by String.
func ParseDerivationPath(s string) (DerivationPath, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] != "m" {
		return DerivationPath{}, fmt.Errorf("invalid derivation path %q", s)
	}

	comps := make([]pathComponent, len(parts)-1)
	for i, part := range parts[1:] {
		c, err := parseComponent(part)
		if err != nil {
			return DerivationPath{}, fmt.Errorf("invalid derivation path %q:\n%w", s, err)
		}
		comps[i] = c
	}

	switch {
	case len(comps) == 6 && comps[0].value == cap26Purpose && comps[1].value == cap26CoinType:
		return parseCAP26(s, comps)
	case len(comps) == 5 && comps[0].value == cap26Purpose && comps[1].value == cap26CoinType:
		return DerivationPath{Scheme: BIP44Olympia, Index: comps[4].value}, nil
	case len(comps) == 5 && comps[0].value == eip2333Purpose && comps[1].value == eip2333CoinType:
		return DerivationPath{Scheme: EIP2333, Index: comps[2].value}, nil
	default:
		return DerivationPath{}, fmt.Errorf("unrecognised derivation path %q", s)
	}
}

// parseCAP26 interprets the six components of a CAP26 path.
func parseCAP26(s string, comps []pathComponent) (DerivationPath, error) {
	for _, c := range comps {
		if !c.hardened {
			return DerivationPath{}, fmt.Errorf("cap26 path %q must be fully hardened", s)
		}
	}

	p := DerivationPath{
		Scheme:  CAP26,
		Network: address.NetworkID(comps[2].value),
		Index:   comps[5].value,
	}

	switch comps[3].value {
	case cap26Account:
		p.EntityKind = address.Account
	case cap26Identity:
		p.EntityKind = address.Identity
	default:
		return DerivationPath{}, fmt.Errorf("unknown entity kind component %d", comps[3].value)
	}

	switch comps[4].value {
	case cap26Transaction:
		p.KeyKind = TransactionSigning
	case cap26Authentication:
		p.KeyKind = AuthenticationSigning
	default:
		return DerivationPath{}, fmt.Errorf("unknown key kind component %d", comps[4].value)
	}

	return p, p.Validate()
}

// parseComponent parses "123", "123H" or "123'".
func parseComponent(part string) (pathComponent, error) {
	c := pathComponent{}

	if strings.HasSuffix(part, "H") || strings.HasSuffix(part, "'") {
		c.hardened = true
		part = part[:len(part)-1]
	}

	v, err := strconv.ParseUint(part, 10, 32)
	if err != nil {
		return c, fmt.Errorf("parse component %q:\n%w", part, err)
	}

	if uint32(v) >= hardened {
		return c, fmt.Errorf("component %d out of range", v)
	}

	c.value = uint32(v)

	return c, nil
}
