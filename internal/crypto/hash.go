package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashSize is the size of a Hash in bytes.
const HashSize = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [HashSize]byte

// HashOf computes BLAKE3 over the concatenation of the given parts.
func HashOf(parts ...[]byte) Hash {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}

	var out Hash
	h.Sum(out[:0])

	return out
}

// DeriveKeyMaterial derives 32 bytes of key material bound to a context string.
// Format: BLAKE3(context || 0x00 || material)
func DeriveKeyMaterial(context string, material []byte) [32]byte {
	h := blake3.New()
	h.Write([]byte(context))
	h.Write([]byte{0x00})
	h.Write(material)

	var derived [32]byte
	h.Sum(derived[:0])

	return derived
}

// IsZero reports whether the hash is all zeroes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// MarshalText encodes the hash as hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a hex encoded hash.
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}

	*h = parsed

	return nil
}

// ParseHash decodes a 64 character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash

	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash hex:\n%w", err)
	}

	if len(raw) != HashSize {
		return h, fmt.Errorf("invalid hash size: got %d, want %d", len(raw), HashSize)
	}

	copy(h[:], raw)

	return h, nil
}
