// Package keyring holds software factor sources backed by BIP39 mnemonics and answers
// sign and derive requests for them.
package keyring

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tyler-smith/go-bip39"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
	"WalletCore/internal/factors"
)

// keyContext binds per-path key material to its purpose.
const keyContext = "walletcore keyring v1 "

// mnemonicBits is the entropy of generated mnemonics (24 words).
const mnemonicBits = 256

// ErrUnknownFactorSource is returned for factor sources the keyring does not hold.
var ErrUnknownFactorSource = errors.New("unknown factor source")

// Policy is how a factor source answers sign requests.
type Policy uint8

const (
	// Sign produces every requested signature.
	Sign Policy = iota

	// Skip answers as if the user skipped the factor source.
	Skip

	// Fail answers as if the factor source failed, e.g. a disconnected device.
	Fail
)

// String returns the text form of the policy.
func (p Policy) String() string {
	switch p {
	case Sign:
		return "sign"
	case Skip:
		return "skip"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// ParsePolicy parses the text form of a policy.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range []Policy{Sign, Skip, Fail} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// entry is one factor source held by the keyring.
type entry struct {
	source factors.FactorSource // source is the public description
	seed   []byte               // seed is the BIP39 seed
	policy Policy               // policy is how sign requests are answered
}

// Keyring holds software factor sources. It is safe for concurrent use.
type Keyring struct {
	mu          sync.RWMutex                      // mu guards entries
	entries     map[factors.FactorSourceID]*entry // entries are keyed by factor source id
	order       []factors.FactorSourceID          // order keeps insertion order
	concurrency int                               // concurrency bounds parallel work per request
}

// New creates an empty keyring. Concurrency below one means one source at a time.
func New(concurrency int) *Keyring {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Keyring{
		entries:     make(map[factors.FactorSourceID]*entry),
		concurrency: concurrency,
	}
}

// GenerateMnemonic returns a fresh 24 word mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy:\n%w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("encode mnemonic:\n%w", err)
	}

	return mnemonic, nil
}

// AddMnemonic adds a hash-identified factor source of the kind backed by the mnemonic.
func (k *Keyring) AddMnemonic(kind factors.FactorSourceKind, mnemonic, passphrase, label string) (factors.FactorSource, error) {
	id, err := factors.NewFactorSourceIDFromMnemonic(kind, mnemonic, passphrase)
	if err != nil {
		return factors.FactorSource{}, err
	}

	return k.add(id, mnemonic, passphrase, label)
}

// AddTrustedContact adds a trusted contact whose keys come from the contact's mnemonic.
func (k *Keyring) AddTrustedContact(account address.Address, mnemonic, passphrase, label string) (factors.FactorSource, error) {
	id, err := factors.NewFactorSourceIDFromAddress(account)
	if err != nil {
		return factors.FactorSource{}, err
	}

	return k.add(id, mnemonic, passphrase, label)
}

// add stores a factor source under id.
func (k *Keyring) add(id factors.FactorSourceID, mnemonic, passphrase, label string) (factors.FactorSource, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return factors.FactorSource{}, fmt.Errorf("mnemonic to seed:\n%w", err)
	}

	source := factors.NewFactorSource(id, label, crypto.Curve25519, crypto.Secp256k1, crypto.BLS12381)

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.entries[id]; exists {
		return factors.FactorSource{}, fmt.Errorf("duplicate factor source %s", id)
	}

	k.entries[id] = &entry{source: source, seed: seed}
	k.order = append(k.order, id)

	return source, nil
}

// SetPolicy changes how the factor source answers sign requests.
func (k *Keyring) SetPolicy(id factors.FactorSourceID, p Policy) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFactorSource, id)
	}

	e.policy = p

	return nil
}

// Sources returns every held factor source in insertion order.
func (k *Keyring) Sources() factors.FactorSources {
	k.mu.RLock()
	defer k.mu.RUnlock()

	list := make([]factors.FactorSource, len(k.order))
	for i, id := range k.order {
		list[i] = k.entries[id].source
	}

	return factors.MustFactorSources(list...)
}

// lookup returns the entry of a factor source.
func (k *Keyring) lookup(id factors.FactorSourceID) (entry, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	e, ok := k.entries[id]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", ErrUnknownFactorSource, id)
	}

	return *e, nil
}

// secretKey derives the key of a factor source at the path.
func secretKey(e entry, path factors.DerivationPath) (*crypto.SecretKey, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	material := crypto.DeriveKeyMaterial(keyContext+path.String(), e.seed)

	sk, err := crypto.NewSecretKeyFromSeed(path.Curve(), material)
	if err != nil {
		return nil, fmt.Errorf("derive key at %s:\n%w", path, err)
	}

	return sk, nil
}

// PublicKey derives the public key of a factor source at the path.
func (k *Keyring) PublicKey(id factors.FactorSourceID, path factors.DerivationPath) (factors.HierarchicalDeterministicFactorInstance, error) {
	e, err := k.lookup(id)
	if err != nil {
		return factors.HierarchicalDeterministicFactorInstance{}, err
	}

	sk, err := secretKey(e, path)
	if err != nil {
		return factors.HierarchicalDeterministicFactorInstance{}, err
	}

	return factors.NewHDFactorInstance(id, sk.PublicKey(), path)
}

// SignHash signs a hash with the key of a factor source at the path, ignoring the policy.
func (k *Keyring) SignHash(id factors.FactorSourceID, path factors.DerivationPath, hash crypto.Hash) (crypto.SignatureWithPublicKey, error) {
	e, err := k.lookup(id)
	if err != nil {
		return crypto.SignatureWithPublicKey{}, err
	}

	sk, err := secretKey(e, path)
	if err != nil {
		return crypto.SignatureWithPublicKey{}, err
	}

	return sk.Sign(hash), nil
}

// Policy returns the policy of a factor source.
func (k *Keyring) Policy(id factors.FactorSourceID) (Policy, error) {
	e, err := k.lookup(id)
	if err != nil {
		return 0, err
	}
	return e.policy, nil
}
