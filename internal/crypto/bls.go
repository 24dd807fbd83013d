package crypto

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
)

const (
	// BLSPublicKeySize is the size of a compressed G1 public key.
	BLSPublicKeySize = 48

	// BLSSignatureSize is the size of a compressed G2 signature.
	BLSSignatureSize = 96
)

// blsDST is the ciphersuite of the basic scheme with public keys in G1.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// blsKey is a BLS12-381 secret key with its cached public key.
type blsKey struct {
	secret *blst.SecretKey // secret is the scalar
	public []byte          // public is the compressed G1 point
}

// newBLSKey runs the IETF KeyGen over the seed.
func newBLSKey(seed [32]byte) (*blsKey, error) {
	secret := blst.KeyGen(seed[:])
	if secret == nil {
		return nil, fmt.Errorf("bls keygen rejected seed")
	}

	return &blsKey{
		secret: secret,
		public: new(blst.P1Affine).From(secret).Compress(),
	}, nil
}

// sign returns the compressed signature over hash.
func (k *blsKey) sign(hash Hash) []byte {
	return new(blst.P2Affine).Sign(k.secret, hash[:], blsDST).Compress()
}

// verifyBLS checks a compressed signature over hash. Points outside the
// prime order subgroup are rejected.
func verifyBLS(signature []byte, hash Hash, publicKey []byte) bool {
	if len(signature) != BLSSignatureSize || len(publicKey) != BLSPublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, hash[:], blsDST)
}
