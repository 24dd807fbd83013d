package derivation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
	"WalletCore/internal/factors"
)

func sourceID(kind factors.FactorSourceKind, b byte) factors.FactorSourceID {
	return factors.MustFactorSourceIDFromHash(kind, [32]byte{byte(kind), b})
}

// derive is a deterministic interactor that records the kinds it was asked for.
type derive struct {
	kinds  []factors.FactorSourceKind
	tamper func(KeyDerivationResponse)
}

func (d *derive) Derive(_ context.Context, req KeyDerivationRequest) (KeyDerivationResponse, error) {
	d.kinds = append(d.kinds, req.Kind)

	resp := NewKeyDerivationResponse()
	for _, entry := range req.PerFactorSource {
		for _, p := range entry.Paths {
			sk, err := crypto.NewSecretKeyFromSeed(p.Curve(), crypto.DeriveKeyMaterial(p.String(), []byte(entry.FactorSourceID.String())))
			if err != nil {
				return KeyDerivationResponse{}, err
			}

			inst, err := factors.NewHDFactorInstance(entry.FactorSourceID, sk.PublicKey(), p)
			if err != nil {
				return KeyDerivationResponse{}, err
			}

			resp.Add(entry.FactorSourceID, inst)
		}
	}

	if d.tamper != nil {
		d.tamper(resp)
	}

	return resp, nil
}

func testSources(ids ...factors.FactorSourceID) factors.FactorSources {
	var list []factors.FactorSource
	for _, id := range ids {
		list = append(list, factors.NewFactorSource(id, id.Kind().String(), crypto.Curve25519, crypto.Secp256k1))
	}
	return factors.MustFactorSources(list...)
}

func TestCollectDerivesEveryPathInFrictionOrder(t *testing.T) {
	device := sourceID(factors.Device, 1)
	ledger := sourceID(factors.LedgerHQHardwareWallet, 1)
	mnemonic := sourceID(factors.OffDeviceMnemonic, 1)

	paths := map[factors.FactorSourceID][]factors.DerivationPath{
		ledger:   {factors.NewAccountPath(address.Mainnet, 0), factors.NewAccountPath(address.Mainnet, 1)},
		device:   {factors.NewAccountPath(address.Mainnet, 0), factors.NewAccountPath(address.Mainnet, 0)},
		mnemonic: {{Scheme: factors.BIP44Olympia, Index: 3}},
	}

	interactor := &derive{}
	c, err := NewKeysCollector(testSources(device, ledger, mnemonic), paths, interactor, CreatingNewAccount)
	require.NoError(t, err)

	resp, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []factors.FactorSourceKind{factors.Device, factors.OffDeviceMnemonic, factors.LedgerHQHardwareWallet}, interactor.kinds)
	assert.Len(t, resp.FactorInstances[device], 1, "repeated paths are derived once")
	assert.Len(t, resp.FactorInstances[ledger], 2)
	assert.Equal(t, crypto.Secp256k1, resp.FactorInstances[mnemonic][0].PublicKey.PublicKey.Curve)
	assert.Equal(t, 4, resp.Len())
	assert.Len(t, resp.All(), 4)
}

func TestUnknownFactorSourceFailsFast(t *testing.T) {
	paths := map[factors.FactorSourceID][]factors.DerivationPath{
		sourceID(factors.Device, 9): {factors.NewAccountPath(address.Mainnet, 0)},
	}

	_, err := NewKeysCollector(testSources(sourceID(factors.Device, 1)), paths, &derive{}, CreatingNewAccount)
	assert.ErrorIs(t, err, factors.ErrFactorSourceDiscrepancy)
}

func TestUnsupportedCurveIsRejected(t *testing.T) {
	device := sourceID(factors.Device, 1)
	paths := map[factors.FactorSourceID][]factors.DerivationPath{
		device: {{Scheme: factors.EIP2333, Index: 0}},
	}

	_, err := NewKeysCollector(testSources(device), paths, &derive{}, PreDerivingKeys)
	assert.Error(t, err)
}

func TestMismatchingAnswersAreRejected(t *testing.T) {
	device := sourceID(factors.Device, 1)
	paths := map[factors.FactorSourceID][]factors.DerivationPath{
		device: {factors.NewAccountPath(address.Mainnet, 0), factors.NewAccountPath(address.Mainnet, 1)},
	}

	cases := map[string]func(KeyDerivationResponse){
		"missing path": func(r KeyDerivationResponse) {
			r.FactorInstances[device] = r.FactorInstances[device][:1]
		},
		"extra path": func(r KeyDerivationResponse) {
			extra := r.FactorInstances[device][0]
			extra.PublicKey.DerivationPath.Index = 7
			r.Add(device, extra)
		},
		"duplicate path": func(r KeyDerivationResponse) {
			r.Add(device, r.FactorInstances[device][0])
		},
		"unrequested source": func(r KeyDerivationResponse) {
			r.Add(sourceID(factors.Device, 2), r.FactorInstances[device]...)
		},
	}

	for name, tamper := range cases {
		t.Run(name, func(t *testing.T) {
			c, err := NewKeysCollector(testSources(device), paths, &derive{tamper: tamper}, SecurifyingAccount)
			require.NoError(t, err)

			_, err = c.Collect(context.Background())
			assert.ErrorIs(t, err, ErrUnexpectedKeys)
		})
	}
}

func TestInteractorErrorAbortsRun(t *testing.T) {
	device := sourceID(factors.Device, 1)
	paths := map[factors.FactorSourceID][]factors.DerivationPath{
		device: {factors.NewAccountPath(address.Mainnet, 0)},
	}

	boom := errors.New("card removed")
	interactor := KeyDerivationInteractorFunc(func(context.Context, KeyDerivationRequest) (KeyDerivationResponse, error) {
		return KeyDerivationResponse{}, boom
	})

	c, err := NewKeysCollector(testSources(device), paths, interactor, AccountRecovery)
	require.NoError(t, err)

	_, err = c.Collect(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyCollected)
}
