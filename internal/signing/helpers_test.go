package signing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/profile"
)

// fixture is a profile together with the secret keys of every instance it holds.
type fixture struct {
	t       *testing.T
	profile *profile.Profile
	secrets map[factors.InstanceKey]*crypto.SecretKey
	next    uint32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	p, err := profile.New(address.Mainnet)
	require.NoError(t, err)

	return &fixture{t: t, profile: p, secrets: make(map[factors.InstanceKey]*crypto.SecretKey)}
}

// source registers a hash-identified factor source of the kind.
func (f *fixture) source(kind factors.FactorSourceKind, b byte) factors.FactorSourceID {
	f.t.Helper()

	id := factors.MustFactorSourceIDFromHash(kind, [32]byte{byte(kind), b})
	require.NoError(f.t, f.profile.AddFactorSource(factors.NewFactorSource(id, kind.String())))

	return id
}

// trustedContact registers a trusted contact identified by a foreign account.
func (f *fixture) trustedContact(b byte) factors.FactorSourceID {
	f.t.Helper()

	sk, err := crypto.NewSecretKeyFromSeed(crypto.Curve25519, [32]byte{0xCC, b})
	require.NoError(f.t, err)

	id, err := factors.NewFactorSourceIDFromAddress(address.FromPublicKey(address.Account, address.Mainnet, sk.PublicKey()))
	require.NoError(f.t, err)
	require.NoError(f.t, f.profile.AddFactorSource(factors.NewFactorSource(id, "friend")))

	return id
}

// instance derives a key of the source at the path and remembers its secret.
func (f *fixture) instance(id factors.FactorSourceID, path factors.DerivationPath) factors.HierarchicalDeterministicFactorInstance {
	f.t.Helper()

	sk, err := crypto.NewSecretKeyFromSeed(path.Curve(), crypto.DeriveKeyMaterial(path.String(), []byte(id.String())))
	require.NoError(f.t, err)

	inst, err := factors.NewHDFactorInstance(id, sk.PublicKey(), path)
	require.NoError(f.t, err)

	f.secrets[inst.Key()] = sk

	return inst
}

// unsecured adds an account controlled by a single key of the source.
func (f *fixture) unsecured(id factors.FactorSourceID) profile.Entity {
	f.t.Helper()

	e, err := profile.NewUnsecuredEntity("account", f.instance(id, factors.NewAccountPath(address.Mainnet, f.next)))
	require.NoError(f.t, err)
	f.next++

	require.NoError(f.t, f.profile.AddEntity(e))

	return e
}

// shape lists the factor sources of each role of a securified entity.
type shape struct {
	threshold    uint8
	primary      []factors.FactorSourceID
	override     []factors.FactorSourceID
	recovery     []factors.FactorSourceID
	confirmation []factors.FactorSourceID
}

// securified adds an account controlled by a security structure of the given shape.
func (f *fixture) securified(s shape) profile.Entity {
	f.t.Helper()

	first := append(append([]factors.FactorSourceID{}, s.primary...), s.override...)[0]

	e, err := profile.NewUnsecuredEntity("securified", f.instance(first, factors.NewAccountPath(address.Mainnet, f.next)))
	require.NoError(f.t, err)

	path := factors.NewAccountPath(address.Mainnet, factors.SecurifiedSpaceOffset+f.next)
	f.next++

	keys := func(ids []factors.FactorSourceID) []factors.HierarchicalDeterministicFactorInstance {
		var out []factors.HierarchicalDeterministicFactorInstance
		for _, id := range ids {
			out = append(out, f.instance(id, path))
		}
		return out
	}

	structure := matrix.SecurityStructureOfFactorInstances{
		Metadata: matrix.NewMetadata("structure"),
		Matrix: matrix.MatrixOfFactorInstances{
			Primary:              matrix.NewPrimaryRole(s.threshold, keys(s.primary), keys(s.override)),
			Recovery:             matrix.NewRecoveryRole(keys(s.recovery)),
			Confirmation:         matrix.NewConfirmationRole(keys(s.confirmation)),
			DaysUntilAutoConfirm: matrix.DefaultDaysUntilAutoConfirm,
		},
		AuthenticationSigningFactor: f.instance(first, path.WithKeyKind(factors.AuthenticationSigning)),
	}

	require.NoError(f.t, e.Securify("accesscontroller_test", structure))
	require.NoError(f.t, f.profile.AddEntity(e))

	return e
}

// intent creates a signable transaction for the entities.
func (f *fixture) intent(nonce uint32, entities ...profile.Entity) SignableWithEntities[TransactionIntent] {
	f.t.Helper()

	tx := TransactionIntent{Network: address.Mainnet, Nonce: nonce, Manifest: []byte("CALL_METHOD")}
	for _, e := range entities {
		tx.Signers = append(tx.Signers, e.Address)
	}

	s, err := NewSignableWithEntities(tx, f.profile)
	require.NoError(f.t, err)

	return s
}

// sign produces every signature the input asks for.
func (f *fixture) sign(in PerFactorSourceInput[TransactionIntent]) []HDSignature {
	var sigs []HDSignature
	for _, tx := range in.Transactions {
		for _, inst := range tx.OwnedFactorInstances {
			sigs = append(sigs, HDSignature{
				Payload:   tx.PayloadID,
				Instance:  inst,
				Signature: f.secrets[inst.Key()].Sign(tx.PayloadID.Hash),
			})
		}
	}
	return sigs
}

// behaviour is how the scripted interactor answers for a factor source.
type behaviour uint8

const (
	sign behaviour = iota
	skip
	fail
	omit
	forge
)

// scripted answers every request according to a fixed behaviour per factor source.
type scripted struct {
	f         *fixture
	behaviour map[factors.FactorSourceID]behaviour
	err       error
	onSign    func()

	mu       sync.Mutex
	requests []SignRequest[TransactionIntent]
}

func newScripted(f *fixture) *scripted {
	return &scripted{f: f, behaviour: make(map[factors.FactorSourceID]behaviour)}
}

func (s *scripted) Sign(ctx context.Context, req SignRequest[TransactionIntent]) (SignResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.onSign != nil {
		s.onSign()
	}

	if s.err != nil {
		return SignResponse{}, s.err
	}

	if err := ctx.Err(); err != nil {
		return SignResponse{}, err
	}

	resp := NewSignResponse()

	for _, in := range req.Inputs {
		switch s.behaviour[in.FactorSourceID] {
		case skip:
			resp.Set(in.FactorSourceID, Skipped())
		case fail:
			resp.Set(in.FactorSourceID, Failed())
		case omit:
		case forge:
			sigs := s.f.sign(in)
			sigs[0].Signature.Signature[0] ^= 0xFF
			resp.Set(in.FactorSourceID, Signed(sigs...))
		default:
			resp.Set(in.FactorSourceID, Signed(s.f.sign(in)...))
		}
	}

	return resp, nil
}

// askedKinds returns the kind of every request in order.
func (s *scripted) askedKinds() []factors.FactorSourceKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kinds []factors.FactorSourceKind
	for _, r := range s.requests {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

// asked returns every factor source that was asked, in order.
func (s *scripted) asked() []factors.FactorSourceID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []factors.FactorSourceID
	for _, r := range s.requests {
		ids = append(ids, r.FactorSourceIDs()...)
	}
	return ids
}

// input returns the input the factor source was asked with.
func (s *scripted) input(id factors.FactorSourceID) (PerFactorSourceInput[TransactionIntent], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.requests {
		for _, in := range r.Inputs {
			if in.FactorSourceID == id {
				return in, true
			}
		}
	}
	return PerFactorSourceInput[TransactionIntent]{}, false
}
