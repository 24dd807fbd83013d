// Package signing collects signatures from factor sources for transactions, subintents and auth challenges.
package signing

import (
	"encoding/binary"
	"fmt"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
)

// PayloadKind is the kind of payload a signable carries.
type PayloadKind uint8

const (
	// TransactionIntentPayload is a transaction intent.
	TransactionIntentPayload PayloadKind = iota + 1

	// SubintentPayload is a partial transaction another party completes.
	SubintentPayload

	// AuthIntentPayload is a proof of ownership challenge.
	AuthIntentPayload
)

// String returns the text form of the kind.
func (k PayloadKind) String() string {
	switch k {
	case TransactionIntentPayload:
		return "transactionIntent"
	case SubintentPayload:
		return "subintent"
	case AuthIntentPayload:
		return "authIntent"
	default:
		return fmt.Sprintf("payload(%d)", uint8(k))
	}
}

// PayloadID identifies a payload by kind and hash. It is comparable.
type PayloadID struct {
	Kind PayloadKind // Kind is the payload kind
	Hash crypto.Hash // Hash is what gets signed
}

// String returns "<kind>:<hash>".
func (id PayloadID) String() string {
	return id.Kind.String() + ":" + id.Hash.Hex()
}

// Signable is a payload that needs signatures from entities.
type Signable interface {
	// PayloadID returns the stable id of the payload.
	PayloadID() PayloadID

	// EntitiesRequiringAuth returns the entities whose authorization the payload needs.
	EntitiesRequiringAuth() []address.Address
}

// hashFields hashes a domain tag followed by length-prefixed fields.
func hashFields(tag string, fields ...[]byte) crypto.Hash {
	parts := make([][]byte, 0, 2*len(fields)+1)
	parts = append(parts, []byte(tag))

	for _, f := range fields {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(f)))
		parts = append(parts, n[:], f)
	}

	return crypto.HashOf(parts...)
}

// addressBytes encodes addresses for hashing.
func addressBytes(addrs []address.Address) []byte {
	out := make([]byte, 0, len(addrs)*(address.BodySize+2))
	for _, a := range addrs {
		out = append(out, byte(a.Kind), byte(a.Network))
		out = append(out, a.Body[:]...)
	}
	return out
}

// uint32Bytes encodes n big endian.
func uint32Bytes(n uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b[:]
}

// TransactionIntent is a transaction to be notarized and submitted.
// The manifest is opaque here; Signers lists the entities its instructions need.
type TransactionIntent struct {
	Network  address.NetworkID // Network is the target network
	Nonce    uint32            // Nonce makes otherwise equal intents distinct
	Manifest []byte            // Manifest is the compiled manifest
	Message  string            // Message is an optional plaintext message
	Signers  []address.Address // Signers are entities whose auth the manifest requires
}

// PayloadID implements Signable.
func (t TransactionIntent) PayloadID() PayloadID {
	return PayloadID{
		Kind: TransactionIntentPayload,
		Hash: hashFields("transaction intent",
			[]byte{byte(t.Network)}, uint32Bytes(t.Nonce), t.Manifest, []byte(t.Message), addressBytes(t.Signers)),
	}
}

// EntitiesRequiringAuth implements Signable.
func (t TransactionIntent) EntitiesRequiringAuth() []address.Address {
	return t.Signers
}

// Subintent is a partial transaction signed by one party and completed by another.
type Subintent struct {
	Network  address.NetworkID // Network is the target network
	Nonce    uint32            // Nonce makes otherwise equal subintents distinct
	Manifest []byte            // Manifest is the compiled subintent manifest
	Message  string            // Message is an optional plaintext message
	Expiry   uint64            // Expiry is the unix time after which the subintent is void
	Signers  []address.Address // Signers are entities whose auth the manifest requires
}

// PayloadID implements Signable.
func (s Subintent) PayloadID() PayloadID {
	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], s.Expiry)

	return PayloadID{
		Kind: SubintentPayload,
		Hash: hashFields("subintent",
			[]byte{byte(s.Network)}, uint32Bytes(s.Nonce), s.Manifest, []byte(s.Message), expiry[:], addressBytes(s.Signers)),
	}
}

// EntitiesRequiringAuth implements Signable.
func (s Subintent) EntitiesRequiringAuth() []address.Address {
	return s.Signers
}

// AuthIntent is a dApp challenge the entities prove ownership against.
type AuthIntent struct {
	Challenge             [32]byte          // Challenge is the dApp nonce
	Origin                string            // Origin is the dApp website
	DappDefinitionAddress string            // DappDefinitionAddress is the dApp's on-ledger definition
	Entities              []address.Address // Entities are the accounts and personas asked to prove ownership
}

// PayloadID implements Signable.
func (a AuthIntent) PayloadID() PayloadID {
	return PayloadID{
		Kind: AuthIntentPayload,
		Hash: hashFields("rola", a.Challenge[:], []byte(a.Origin), []byte(a.DappDefinitionAddress), addressBytes(a.Entities)),
	}
}

// EntitiesRequiringAuth implements Signable.
func (a AuthIntent) EntitiesRequiringAuth() []address.Address {
	return a.Entities
}
