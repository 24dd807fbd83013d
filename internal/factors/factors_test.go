package factors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func hashID(t *testing.T, kind FactorSourceKind, b byte) FactorSourceID {
	t.Helper()

	id, err := NewFactorSourceIDFromHash(kind, [32]byte{b})
	require.NoError(t, err)

	return id
}

func TestFrictionOrderDeviceFirstHardwareLast(t *testing.T) {
	kinds := []FactorSourceKind{LedgerHQHardwareWallet, TrustedContact, ArculusCard, Device, OffDeviceMnemonic, Password}
	SortByFriction(kinds)

	assert.Equal(t, []FactorSourceKind{Device, Password, OffDeviceMnemonic, TrustedContact, ArculusCard, LedgerHQHardwareWallet}, kinds)
	assert.Equal(t, kinds, AllKinds())

	for _, k := range kinds[:4] {
		assert.False(t, k.IsHardware(), k.String())
	}
	assert.True(t, ArculusCard.IsHardware())
	assert.True(t, LedgerHQHardwareWallet.IsHardware())
}

func TestKindTextRoundTrip(t *testing.T) {
	for _, k := range AllKinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var parsed FactorSourceKind
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, k, parsed)
	}

	_, err := FactorSourceKind(99).MarshalText()
	assert.Error(t, err)
}

func TestFactorSourceIDTextRoundTrip(t *testing.T) {
	var seed [32]byte
	seed[0] = 42
	sk, err := crypto.NewSecretKeyFromSeed(crypto.Curve25519, seed)
	require.NoError(t, err)

	contact, err := NewFactorSourceIDFromAddress(address.FromPublicKey(address.Account, address.Mainnet, sk.PublicKey()))
	require.NoError(t, err)

	for _, id := range []FactorSourceID{hashID(t, Device, 1), hashID(t, LedgerHQHardwareWallet, 2), contact} {
		parsed, err := ParseFactorSourceID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}

	_, ok := contact.Hash()
	assert.False(t, ok)

	addr, ok := contact.AccountAddress()
	assert.True(t, ok)
	assert.Equal(t, address.Account, addr.Kind)
}

func TestFactorSourceIDValidation(t *testing.T) {
	_, err := NewFactorSourceIDFromHash(Device, [32]byte{})
	assert.Error(t, err)

	_, err = NewFactorSourceIDFromHash(TrustedContact, [32]byte{1})
	assert.Error(t, err)

	_, err = NewFactorSourceIDFromAddress(address.Address{Kind: address.Identity, Network: address.Mainnet})
	assert.Error(t, err)

	_, err = ParseFactorSourceID("device")
	assert.Error(t, err)
}

func TestFactorSourceIDFromMnemonic(t *testing.T) {
	a, err := NewFactorSourceIDFromMnemonic(Device, testMnemonic, "")
	require.NoError(t, err)

	b, err := NewFactorSourceIDFromMnemonic(Device, testMnemonic, "")
	require.NoError(t, err)

	c, err := NewFactorSourceIDFromMnemonic(Device, testMnemonic, "extra word")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = NewFactorSourceIDFromMnemonic(Device, "abandon abandon abandon", "")
	assert.Error(t, err)
}

func TestFactorSourcesRejectDuplicates(t *testing.T) {
	device := NewFactorSource(hashID(t, Device, 1), "phone")

	_, err := NewFactorSources(device, device)
	assert.Error(t, err)
}

func TestGroupByKindFrictionOrder(t *testing.T) {
	ledger := NewFactorSource(hashID(t, LedgerHQHardwareWallet, 1), "ledger")
	device := NewFactorSource(hashID(t, Device, 2), "phone")
	mnemonic := NewFactorSource(hashID(t, OffDeviceMnemonic, 3), "paper")
	ledger2 := NewFactorSource(hashID(t, LedgerHQHardwareWallet, 4), "ledger 2")

	all := MustFactorSources(ledger, device, mnemonic, ledger2)

	groups, err := all.GroupByKind([]FactorSourceID{ledger.ID, mnemonic.ID, device.ID, ledger2.ID, ledger.ID})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	assert.Equal(t, Device, groups[0].Kind)
	assert.Equal(t, OffDeviceMnemonic, groups[1].Kind)
	assert.Equal(t, LedgerHQHardwareWallet, groups[2].Kind)
	assert.Equal(t, []FactorSource{ledger, ledger2}, groups[2].Sources)

	_, err = all.GroupByKind([]FactorSourceID{hashID(t, ArculusCard, 9)})
	assert.True(t, errors.Is(err, ErrFactorSourceDiscrepancy))
}

func TestFactorSourcesJSON(t *testing.T) {
	all := MustFactorSources(
		NewFactorSource(hashID(t, Device, 1), "phone"),
		NewFactorSource(hashID(t, Password, 2), "password"),
	)

	data, err := json.Marshal(all)
	require.NoError(t, err)

	var decoded FactorSources
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, all.IDs(), decoded.IDs())
}

func TestDerivationPathParse(t *testing.T) {
	paths := []DerivationPath{
		NewAccountPath(address.Mainnet, 0),
		NewIdentityPath(address.Stokenet, 7).WithKeyKind(AuthenticationSigning),
		NewAccountPath(address.Mainnet, SecurifiedSpaceOffset+3),
		{Scheme: BIP44Olympia, Index: 5},
		{Scheme: EIP2333, Index: 2},
	}

	for _, p := range paths {
		parsed, err := ParseDerivationPath(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p, parsed)
	}

	assert.Equal(t, "m/44H/1022H/1H/525H/1460H/0H", NewAccountPath(address.Mainnet, 0).String())
	assert.True(t, NewAccountPath(address.Mainnet, SecurifiedSpaceOffset).IsSecurified())

	for _, bad := range []string{"", "m", "x/44H", "m/44H/1022H/1H/999H/1460H/0H", "m/44H/1022H/1H/525H/1460/0H", "m/1/2/3"} {
		_, err := ParseDerivationPath(bad)
		assert.Error(t, err, bad)
	}
}

func TestHDFactorInstanceCurveMustMatchPath(t *testing.T) {
	var seed [32]byte
	seed[0] = 1

	sk, err := crypto.NewSecretKeyFromSeed(crypto.Secp256k1, seed)
	require.NoError(t, err)

	_, err = NewHDFactorInstance(hashID(t, Device, 1), sk.PublicKey(), NewAccountPath(address.Mainnet, 0))
	assert.Error(t, err)

	inst, err := NewHDFactorInstance(hashID(t, Device, 1), sk.PublicKey(), DerivationPath{Scheme: BIP44Olympia, Index: 0})
	require.NoError(t, err)

	general := inst.FactorInstance()
	back, err := general.HD()
	require.NoError(t, err)
	assert.True(t, inst.Equal(back))

	_, err = FactorInstance{FactorSourceID: inst.FactorSourceID, Badge: Badge{Physical: &PhysicalBadge{}}}.HD()
	assert.Error(t, err)
}
