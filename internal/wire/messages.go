// Package wire encodes the messages exchanged with remote signer hosts and the profile backup format.
package wire

import (
	"fmt"

	"WalletCore/internal/crypto"
)

// Method selects the handler of an envelope.
type Method uint8

const (
	// MethodSign asks the host to sign.
	MethodSign Method = iota + 1

	// MethodDerive asks the host to derive public keys.
	MethodDerive
)

// String returns the text form of the method.
func (m Method) String() string {
	switch m {
	case MethodSign:
		return "sign"
	case MethodDerive:
		return "derive"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// Envelope frames one request or response on a stream.
type Envelope struct {
	Method Method // Method selects the handler
	Body   []byte // Body is the encoded request or response
	Error  string // Error is set by the host when the request failed as a whole
}

// SignTarget is one payload hash to sign with the key at Path.
type SignTarget struct {
	PayloadKind uint8       // PayloadKind tells the host what it signs
	Hash        crypto.Hash // Hash is the payload hash
	Path        string      // Path is the derivation path of the signing key
}

// SignInput is the work for one factor source.
type SignInput struct {
	FactorSourceID string       // FactorSourceID is the text form of the source id
	Targets        []SignTarget // Targets are the hashes to sign
}

// SignRequest is a batch of inputs for one factor source kind.
type SignRequest struct {
	Kind   uint8       // Kind is the factor source kind of every input
	Inputs []SignInput // Inputs are per factor source
}

// Signature is one produced signature.
type Signature struct {
	PayloadKind uint8       // PayloadKind echoes the target
	Hash        crypto.Hash // Hash echoes the target
	Path        string      // Path echoes the target
	Curve       uint8       // Curve is the curve of PublicKey
	PublicKey   []byte      // PublicKey is the signing key
	Signature   []byte      // Signature is the raw signature
}

// FactorOutcome is the result for one factor source.
// Neglect is zero when the source signed.
type FactorOutcome struct {
	FactorSourceID string      // FactorSourceID is the text form of the source id
	Neglect        uint8       // Neglect is the neglect reason, zero for signed
	Signatures     []Signature // Signatures are set when signed
}

// SignResponse is the answer to a SignRequest.
type SignResponse struct {
	Outcomes []FactorOutcome // Outcomes are per factor source
}

// DeriveInput lists the paths to derive for one factor source.
type DeriveInput struct {
	FactorSourceID string   // FactorSourceID is the text form of the source id
	Paths          []string // Paths are derivation paths
}

// DeriveRequest is a batch of inputs for one factor source kind.
type DeriveRequest struct {
	Kind   uint8         // Kind is the factor source kind of every input
	Inputs []DeriveInput // Inputs are per factor source
}

// DerivedKey is one derived public key.
type DerivedKey struct {
	FactorSourceID string // FactorSourceID is the deriving source
	Path           string // Path is the derivation path
	Curve          uint8  // Curve is the key curve
	PublicKey      []byte // PublicKey is the raw key
}

// DeriveResponse is the answer to a DeriveRequest.
type DeriveResponse struct {
	Keys []DerivedKey // Keys are all derived keys
}

// Record is one key-value pair of a backup.
type Record struct {
	Key   []byte // Key is the storage key
	Value []byte // Value is the stored value
}

// Backup is a full profile dump.
type Backup struct {
	Version  uint32      // Version is the backup format version
	Records  []Record    // Records are sorted by key
	Checksum crypto.Hash // Checksum covers version and records
}
