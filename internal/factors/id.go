package factors

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
)

// idContext binds mnemonic-derived ids to their purpose.
const idContext = "walletcore factor source id v1"

// FactorSourceID identifies a factor source.
// Every kind except TrustedContact is identified by a 32-byte hash;
// trusted contacts are identified by the contact's account address.
// The zero value is invalid. FactorSourceID is comparable and usable as a map key.
type FactorSourceID struct {
	kind    FactorSourceKind // kind is the kind of the source
	body    [32]byte         // body is the hash for hash-derived ids
	account address.Address  // account is set only for address-derived ids
}

// NewFactorSourceIDFromHash creates a hash-derived id.
func NewFactorSourceIDFromHash(kind FactorSourceKind, body [32]byte) (FactorSourceID, error) {
	if !kind.IsValid() {
		return FactorSourceID{}, fmt.Errorf("unknown factor source kind %d", uint8(kind))
	}

	if kind == TrustedContact {
		return FactorSourceID{}, fmt.Errorf("trusted contacts are identified by account address")
	}

	if body == [32]byte{} {
		return FactorSourceID{}, fmt.Errorf("factor source id hash must not be zero")
	}

	return FactorSourceID{kind: kind, body: body}, nil
}

// NewFactorSourceIDFromAddress creates the id of a trusted contact.
func NewFactorSourceIDFromAddress(account address.Address) (FactorSourceID, error) {
	if account.Kind != address.Account {
		return FactorSourceID{}, fmt.Errorf("trusted contact must be an account address, got %s", account.Kind)
	}

	return FactorSourceID{kind: TrustedContact, account: account}, nil
}

// NewFactorSourceIDFromMnemonic derives a hash-derived id from a BIP39 mnemonic and passphrase.
// The mnemonic checksum is verified.
func NewFactorSourceIDFromMnemonic(kind FactorSourceKind, mnemonic, passphrase string) (FactorSourceID, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return FactorSourceID{}, fmt.Errorf("mnemonic to seed:\n%w", err)
	}

	return NewFactorSourceIDFromHash(kind, crypto.DeriveKeyMaterial(idContext, seed))
}

// MustFactorSourceIDFromHash is like NewFactorSourceIDFromHash but panics on error.
func MustFactorSourceIDFromHash(kind FactorSourceKind, body [32]byte) FactorSourceID {
	id, err := NewFactorSourceIDFromHash(kind, body)
	if err != nil {
		panic(err)
	}
	return id
}

// Kind returns the kind of the identified source.
func (id FactorSourceID) Kind() FactorSourceKind {
	return id.kind
}

// Hash returns the body of a hash-derived id.
func (id FactorSourceID) Hash() ([32]byte, bool) {
	return id.body, id.kind != TrustedContact && id.kind.IsValid()
}

// AccountAddress returns the address of an address-derived id.
func (id FactorSourceID) AccountAddress() (address.Address, bool) {
	return id.account, id.kind == TrustedContact
}

// IsZero reports whether the id is unset.
func (id FactorSourceID) IsZero() bool {
	return id == FactorSourceID{}
}

// SourceID returns the id itself so ids satisfy Factor.
func (id FactorSourceID) SourceID() FactorSourceID {
	return id
}

// String returns "<kind>:<hex>" or "<kind>:<address>".
func (id FactorSourceID) String() string {
	if id.kind == TrustedContact {
		return id.kind.String() + ":" + id.account.String()
	}
	return id.kind.String() + ":" + hex.EncodeToString(id.body[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id FactorSourceID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("cannot encode zero factor source id")
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *FactorSourceID) UnmarshalText(text []byte) error {
	parsed, err := ParseFactorSourceID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// ParseFactorSourceID parses the text form produced by String.
func ParseFactorSourceID(s string) (FactorSourceID, error) {
	kindText, rest, ok := strings.Cut(s, ":")
	if !ok {
		return FactorSourceID{}, fmt.Errorf("malformed factor source id %q", s)
	}

	kind, err := ParseKind(kindText)
	if err != nil {
		return FactorSourceID{}, err
	}

	if kind == TrustedContact {
		account, err := address.Parse(rest)
		if err != nil {
			return FactorSourceID{}, fmt.Errorf("parse trusted contact address:\n%w", err)
		}

		return NewFactorSourceIDFromAddress(account)
	}

	raw, err := hex.DecodeString(rest)
	if err != nil {
		return FactorSourceID{}, fmt.Errorf("decode factor source id hex:\n%w", err)
	}

	if len(raw) != 32 {
		return FactorSourceID{}, fmt.Errorf("invalid factor source id hash size: got %d, want 32", len(raw))
	}

	var body [32]byte
	copy(body[:], raw)

	return NewFactorSourceIDFromHash(kind, body)
}
