package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
)

func TestPayloadIDsDifferByContentAndKind(t *testing.T) {
	tx := TransactionIntent{Network: address.Mainnet, Nonce: 1, Manifest: []byte("m")}
	sub := Subintent{Network: address.Mainnet, Nonce: 1, Manifest: []byte("m")}

	assert.Equal(t, tx.PayloadID(), tx.PayloadID())
	assert.NotEqual(t, tx.PayloadID().Hash, sub.PayloadID().Hash)

	other := tx
	other.Nonce = 2
	assert.NotEqual(t, tx.PayloadID(), other.PayloadID())

	auth := AuthIntent{Challenge: [32]byte{1}, Origin: "https://dapp.example"}
	assert.Equal(t, AuthIntentPayload, auth.PayloadID().Kind)
}

func TestSignableWithEntitiesCollapsesRepeats(t *testing.T) {
	f := newFixture(t)
	e := f.unsecured(f.source(factors.Device, 1))

	s, err := NewSignableWithEntities(TransactionIntent{Signers: []address.Address{e.Address, e.Address}}, f.profile)
	require.NoError(t, err)

	assert.Len(t, s.Entities(), 1)
}

func TestPurposeString(t *testing.T) {
	assert.Equal(t, "rola", ROLA().String())
	assert.Equal(t, "signTX(primary)", SignTX(matrix.Primary).String())
	assert.Equal(t, "signTX(recovery+confirmation)", SignTXWithRoles(matrix.Recovery, matrix.Confirmation).String())
}

func TestUnsecuredROLAFallsBackToTransactionKey(t *testing.T) {
	f := newFixture(t)
	device := f.source(factors.Device, 1)
	e := f.unsecured(device)

	reqs, err := ROLA().requirementsFor(e)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, e.Security.Unsecured.TransactionSigning, reqs[0].thresholdFactors[0])

	auth := f.instance(device, factors.NewAccountPath(address.Mainnet, 99).WithKeyKind(factors.AuthenticationSigning))
	e.Security.Unsecured.AuthenticationSigning = &auth

	reqs, err = ROLA().requirementsFor(e)
	require.NoError(t, err)
	assert.Equal(t, auth, reqs[0].thresholdFactors[0])
	assert.Zero(t, reqs[0].kind)
}
