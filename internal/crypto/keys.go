package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PublicKey is a compressed public key tagged with its curve.
type PublicKey struct {
	Curve Curve  `json:"curve"` // Curve is the curve the key lives on
	Bytes []byte `json:"bytes"` // Bytes is the compressed key encoding
}

// NewPublicKey validates the key length and, for curves with point encodings, the point itself.
func NewPublicKey(curve Curve, raw []byte) (PublicKey, error) {
	size := curve.PublicKeySize()
	if size == 0 {
		return PublicKey{}, fmt.Errorf("unknown curve %d", uint8(curve))
	}

	if len(raw) != size {
		return PublicKey{}, fmt.Errorf("invalid %s public key size: got %d, want %d", curve, len(raw), size)
	}

	if curve == Secp256k1 {
		if _, err := secp256k1.ParsePubKey(raw); err != nil {
			return PublicKey{}, fmt.Errorf("parse secp256k1 public key:\n%w", err)
		}
	}

	key := make([]byte, len(raw))
	copy(key, raw)

	return PublicKey{Curve: curve, Bytes: key}, nil
}

// Equal reports whether both keys are on the same curve with identical bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return k.Curve == other.Curve && bytes.Equal(k.Bytes, other.Bytes)
}

// Hex returns the hex encoding of the key bytes.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k.Bytes)
}

// String implements fmt.Stringer.
func (k PublicKey) String() string {
	return k.Curve.String() + ":" + k.Hex()
}

// SecretKey is a private key on one of the supported curves.
type SecretKey struct {
	curve     Curve                  // curve selects which of the fields below is set
	ed25519   ed25519.PrivateKey     // ed25519 is set for Curve25519
	secp256k1 *secp256k1.PrivateKey // secp256k1 is set for Secp256k1
	bls       *blsKey                // bls is set for BLS12381
}

// NewSecretKeyFromSeed deterministically derives a secret key on the curve from 32 bytes of seed.
func NewSecretKeyFromSeed(curve Curve, seed [32]byte) (*SecretKey, error) {
	switch curve {
	case Curve25519:
		return &SecretKey{curve: curve, ed25519: ed25519.NewKeyFromSeed(seed[:])}, nil

	case Secp256k1:
		priv := secp256k1.PrivKeyFromBytes(seed[:])
		if priv.Key.IsZero() {
			return nil, fmt.Errorf("seed maps to the zero secp256k1 scalar")
		}

		return &SecretKey{curve: curve, secp256k1: priv}, nil

	case BLS12381:
		k, err := newBLSKey(seed)
		if err != nil {
			return nil, fmt.Errorf("generate bls key:\n%w", err)
		}

		return &SecretKey{curve: curve, bls: k}, nil

	default:
		return nil, fmt.Errorf("unknown curve %d", uint8(curve))
	}
}

// Curve returns the curve of the key.
func (s *SecretKey) Curve() Curve {
	return s.curve
}

// PublicKey returns the compressed public key.
func (s *SecretKey) PublicKey() PublicKey {
	switch s.curve {
	case Curve25519:
		return PublicKey{Curve: s.curve, Bytes: []byte(s.ed25519.Public().(ed25519.PublicKey))}
	case Secp256k1:
		return PublicKey{Curve: s.curve, Bytes: s.secp256k1.PubKey().SerializeCompressed()}
	default:
		return PublicKey{Curve: s.curve, Bytes: slices.Clone(s.bls.public)}
	}
}

// Sign signs the hash and returns the signature together with the public key.
func (s *SecretKey) Sign(hash Hash) SignatureWithPublicKey {
	var sig []byte

	switch s.curve {
	case Curve25519:
		sig = ed25519.Sign(s.ed25519, hash[:])
	case Secp256k1:
		sig = ecdsa.Sign(s.secp256k1, hash[:]).Serialize()
	default:
		sig = s.bls.sign(hash)
	}

	return SignatureWithPublicKey{
		PublicKey: s.PublicKey(),
		Signature: sig,
	}
}

// SignatureWithPublicKey pairs a signature with the key that produced it.
type SignatureWithPublicKey struct {
	PublicKey PublicKey `json:"publicKey"` // PublicKey is the signer's public key
	Signature []byte    `json:"signature"` // Signature is the curve specific signature encoding
}

// Verify checks the signature over hash against the embedded public key.
func (s SignatureWithPublicKey) Verify(hash Hash) bool {
	switch s.PublicKey.Curve {
	case Curve25519:
		if len(s.PublicKey.Bytes) != ed25519.PublicKeySize || len(s.Signature) != ed25519.SignatureSize {
			return false
		}

		return ed25519.Verify(ed25519.PublicKey(s.PublicKey.Bytes), hash[:], s.Signature)

	case Secp256k1:
		pub, err := secp256k1.ParsePubKey(s.PublicKey.Bytes)
		if err != nil {
			return false
		}

		sig, err := ecdsa.ParseDERSignature(s.Signature)
		if err != nil {
			return false
		}

		return sig.Verify(hash[:], pub)

	case BLS12381:
		return verifyBLS(s.Signature, hash, s.PublicKey.Bytes)

	default:
		return false
	}
}
