package keyring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/profile"
	"WalletCore/internal/signing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	m, err := GenerateMnemonic()
	require.NoError(t, err)

	assert.True(t, bip39.IsMnemonicValid(m))
	assert.Len(t, strings.Fields(m), 24)
}

func TestAddMnemonic(t *testing.T) {
	k := New(2)

	source, err := k.AddMnemonic(factors.Device, testMnemonic, "", "phone")
	require.NoError(t, err)

	want, err := factors.NewFactorSourceIDFromMnemonic(factors.Device, testMnemonic, "")
	require.NoError(t, err)
	assert.Equal(t, want, source.ID)

	_, err = k.AddMnemonic(factors.Device, testMnemonic, "", "phone again")
	assert.Error(t, err, "duplicate")

	_, err = k.AddMnemonic(factors.Device, "abandon abandon", "", "broken")
	assert.Error(t, err)

	assert.Equal(t, 1, k.Sources().Len())
}

func TestSignHashVerifiesOnEveryCurve(t *testing.T) {
	k := New(1)
	source, err := k.AddMnemonic(factors.ArculusCard, testMnemonic, "card", "card")
	require.NoError(t, err)

	paths := []factors.DerivationPath{
		factors.NewAccountPath(address.Mainnet, 0),
		{Scheme: factors.BIP44Olympia, Index: 1},
		{Scheme: factors.EIP2333, Index: 2},
	}

	hash := crypto.HashOf([]byte("payload"))

	for _, p := range paths {
		inst, err := k.PublicKey(source.ID, p)
		require.NoError(t, err)

		sig, err := k.SignHash(source.ID, p, hash)
		require.NoError(t, err)

		assert.True(t, sig.PublicKey.Equal(inst.PublicKey.PublicKey), p.String())
		assert.True(t, sig.Verify(hash), p.String())
	}

	_, err = k.SignHash(factors.MustFactorSourceIDFromHash(factors.Device, [32]byte{1}), paths[0], hash)
	assert.ErrorIs(t, err, ErrUnknownFactorSource)
}

func TestSetPolicy(t *testing.T) {
	k := New(1)
	source, err := k.AddMnemonic(factors.Password, testMnemonic, "pw", "password")
	require.NoError(t, err)

	require.NoError(t, k.SetPolicy(source.ID, Skip))

	p, err := k.Policy(source.ID)
	require.NoError(t, err)
	assert.Equal(t, Skip, p)

	parsed, err := ParsePolicy("fail")
	require.NoError(t, err)
	assert.Equal(t, Fail, parsed)
}

func TestKeyringDrivesBothCollectors(t *testing.T) {
	k := New(4)

	device, err := k.AddMnemonic(factors.Device, testMnemonic, "", "phone")
	require.NoError(t, err)

	other, err := GenerateMnemonic()
	require.NoError(t, err)

	ledger, err := k.AddMnemonic(factors.LedgerHQHardwareWallet, other, "", "ledger")
	require.NoError(t, err)

	require.NoError(t, k.SetPolicy(ledger.ID, Skip))

	sources := k.Sources()

	keys, err := derivation.NewKeysCollector(sources, map[factors.FactorSourceID][]factors.DerivationPath{
		device.ID: {factors.NewAccountPath(address.Mainnet, 0)},
		ledger.ID: {factors.NewAccountPath(address.Mainnet, 0)},
	}, k, derivation.CreatingNewAccount)
	require.NoError(t, err)

	derived, err := keys.Collect(context.Background())
	require.NoError(t, err)

	p, err := profile.New(address.Mainnet, sources.All()...)
	require.NoError(t, err)

	var signers []address.Address
	for _, inst := range derived.All() {
		e, err := profile.NewUnsecuredEntity("account", inst)
		require.NoError(t, err)
		require.NoError(t, p.AddEntity(e))
		signers = append(signers, e.Address)
	}

	deviceOnly := signing.TransactionIntent{Network: address.Mainnet, Nonce: 1}
	for _, inst := range derived.FactorInstances[device.ID] {
		deviceOnly.Signers = append(deviceOnly.Signers, inst.EntityAddress())
	}
	both := signing.TransactionIntent{Network: address.Mainnet, Nonce: 2, Signers: signers}

	var signables []signing.SignableWithEntities[signing.TransactionIntent]
	for _, tx := range []signing.TransactionIntent{deviceOnly, both} {
		s, err := signing.NewSignableWithEntities(tx, p)
		require.NoError(t, err)
		signables = append(signables, s)
	}

	c, err := signing.NewSignaturesCollector(sources, signables, Signer[signing.TransactionIntent](k), signing.SignTX(matrix.Primary))
	require.NoError(t, err)

	outcome, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []signing.PayloadID{deviceOnly.PayloadID()}, outcome.SuccessfulPayloads())
	assert.Equal(t, []signing.PayloadID{both.PayloadID()}, outcome.FailedPayloads())
	assert.Equal(t, []factors.FactorSourceID{ledger.ID}, outcome.NeglectedBy(signing.UserExplicitlySkipped))
}
