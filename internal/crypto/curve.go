package crypto

import "fmt"

// Curve identifies the elliptic curve a key lives on.
type Curve uint8

const (
	// Curve25519 keys sign with Ed25519.
	Curve25519 Curve = iota + 1

	// Secp256k1 keys sign with ECDSA (DER encoded signatures).
	Secp256k1

	// BLS12381 keys sign with BLS (min-pubkey-size variant).
	BLS12381
)

// String returns the canonical curve name.
func (c Curve) String() string {
	switch c {
	case Curve25519:
		return "curve25519"
	case Secp256k1:
		return "secp256k1"
	case BLS12381:
		return "bls12381"
	default:
		return fmt.Sprintf("curve(%d)", uint8(c))
	}
}

// PublicKeySize returns the expected length of a compressed public key on the curve.
func (c Curve) PublicKeySize() int {
	switch c {
	case Curve25519:
		return 32
	case Secp256k1:
		return 33
	case BLS12381:
		return BLSPublicKeySize
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Curve) MarshalText() ([]byte, error) {
	if c.PublicKeySize() == 0 {
		return nil, fmt.Errorf("unknown curve %d", uint8(c))
	}

	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curve) UnmarshalText(text []byte) error {
	parsed, err := ParseCurve(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// ParseCurve parses a curve name as produced by String.
func ParseCurve(s string) (Curve, error) {
	switch s {
	case "curve25519":
		return Curve25519, nil
	case "secp256k1":
		return Secp256k1, nil
	case "bls12381":
		return BLS12381, nil
	default:
		return 0, fmt.Errorf("unknown curve %q", s)
	}
}
