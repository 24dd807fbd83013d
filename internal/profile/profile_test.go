package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/crypto"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
	"WalletCore/internal/storage"
)

func sourceID(kind factors.FactorSourceKind, b byte) factors.FactorSourceID {
	return factors.MustFactorSourceIDFromHash(kind, [32]byte{byte(kind), b})
}

func instance(t *testing.T, source factors.FactorSourceID, path factors.DerivationPath) factors.HierarchicalDeterministicFactorInstance {
	t.Helper()

	sk, err := crypto.NewSecretKeyFromSeed(path.Curve(), crypto.DeriveKeyMaterial(path.String(), []byte(source.String())))
	require.NoError(t, err)

	inst, err := factors.NewHDFactorInstance(source, sk.PublicKey(), path)
	require.NoError(t, err)

	return inst
}

func testProfile(t *testing.T) (*Profile, Entity) {
	t.Helper()

	device := sourceID(factors.Device, 1)
	ledger := sourceID(factors.LedgerHQHardwareWallet, 1)

	p, err := New(address.Mainnet,
		factors.NewFactorSource(device, "phone"),
		factors.NewFactorSource(ledger, "ledger"),
	)
	require.NoError(t, err)

	account, err := NewUnsecuredEntity("Main", instance(t, device, factors.NewAccountPath(address.Mainnet, 0)))
	require.NoError(t, err)
	require.NoError(t, p.AddEntity(account))

	persona, err := NewUnsecuredEntity("Me", instance(t, ledger, factors.NewIdentityPath(address.Mainnet, 0)))
	require.NoError(t, err)
	require.NoError(t, p.AddEntity(persona))

	return p, account
}

func TestEntityByAddress(t *testing.T) {
	p, account := testProfile(t)

	found, err := p.EntityByAddress(account.Address)
	require.NoError(t, err)
	assert.Equal(t, "Main", found.DisplayName)
	assert.True(t, found.IsAccount())
	assert.Len(t, p.Entities(), 2)

	missing := account.Address
	missing.Body[0] ^= 0xff

	_, err = p.EntityByAddress(missing)
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestAddEntityRejectsUnknownFactorSourceAndDuplicates(t *testing.T) {
	p, account := testProfile(t)

	assert.Error(t, p.AddEntity(account))

	stranger, err := NewUnsecuredEntity("x", instance(t, sourceID(factors.ArculusCard, 9), factors.NewAccountPath(address.Mainnet, 1)))
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddEntity(stranger), factors.ErrFactorSourceDiscrepancy)

	other, err := NewUnsecuredEntity("x", instance(t, sourceID(factors.Device, 1), factors.NewAccountPath(address.Stokenet, 1)))
	require.NoError(t, err)
	assert.Error(t, p.AddEntity(other), "network mismatch")
}

func TestSecurifyEntity(t *testing.T) {
	p, account := testProfile(t)

	device := sourceID(factors.Device, 1)
	ledger := sourceID(factors.LedgerHQHardwareWallet, 1)
	securified := factors.NewAccountPath(address.Mainnet, factors.SecurifiedSpaceOffset)

	deviceInst := instance(t, device, securified)
	ledgerInst := instance(t, ledger, securified)

	structure := matrix.SecurityStructureOfFactorInstances{
		Metadata: matrix.NewMetadata("shield"),
		Matrix: matrix.MatrixOfFactorInstances{
			Primary:              matrix.NewPrimaryRole(1, []factors.HierarchicalDeterministicFactorInstance{deviceInst}, nil),
			Recovery:             matrix.NewRecoveryRole([]factors.HierarchicalDeterministicFactorInstance{ledgerInst}),
			Confirmation:         matrix.NewConfirmationRole[factors.HierarchicalDeterministicFactorInstance](nil),
			DaysUntilAutoConfirm: 14,
		},
		AuthenticationSigningFactor: instance(t, device, securified.WithKeyKind(factors.AuthenticationSigning)),
	}

	require.NoError(t, account.Securify("accesscontroller_rdx1", structure))
	assert.True(t, account.IsSecurified())
	assert.Error(t, account.Securify("again", structure))
	assert.ElementsMatch(t, []factors.FactorSourceID{device, ledger}, account.FactorSourceIDs())

	require.NoError(t, p.UpdateEntity(account))

	found, err := p.EntityByAddress(account.Address)
	require.NoError(t, err)
	assert.True(t, found.IsSecurified())
}

func TestValidateRejectsTamperedSecurityStructure(t *testing.T) {
	p, account := testProfile(t)

	device := sourceID(factors.Device, 1)
	ledger := sourceID(factors.LedgerHQHardwareWallet, 1)
	securified := factors.NewAccountPath(address.Mainnet, factors.SecurifiedSpaceOffset)

	structure := matrix.SecurityStructureOfFactorInstances{
		Metadata: matrix.NewMetadata("shield"),
		Matrix: matrix.MatrixOfFactorInstances{
			Primary: matrix.NewPrimaryRole(1, []factors.HierarchicalDeterministicFactorInstance{
				instance(t, device, securified),
				instance(t, ledger, securified),
			}, nil),
			Recovery:             matrix.NewRecoveryRole([]factors.HierarchicalDeterministicFactorInstance{instance(t, ledger, securified)}),
			Confirmation:         matrix.NewConfirmationRole[factors.HierarchicalDeterministicFactorInstance](nil),
			DaysUntilAutoConfirm: 14,
		},
		AuthenticationSigningFactor: instance(t, device, securified.WithKeyKind(factors.AuthenticationSigning)),
	}
	require.NoError(t, account.Securify("accesscontroller_rdx1", structure))
	require.NoError(t, account.Validate())

	data, err := json.Marshal(account)
	require.NoError(t, err)

	tampered := bytes.Replace(data, []byte(`"kind":"primary","threshold":1`), []byte(`"kind":"primary","threshold":0`), 1)
	require.NotEqual(t, data, tampered)

	var loaded Entity
	require.NoError(t, json.Unmarshal(tampered, &loaded))

	err = loaded.Validate()
	require.Error(t, err)

	var verr *matrix.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, matrix.PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero, verr.Result.Reason)

	assert.Error(t, p.UpdateEntity(loaded))

	found, err := p.EntityByAddress(account.Address)
	require.NoError(t, err)
	assert.False(t, found.IsSecurified(), "rejected update must leave the stored entity alone")
}

func TestSecurityStructures(t *testing.T) {
	p, _ := testProfile(t)

	device := sourceID(factors.Device, 1)
	ledger := sourceID(factors.LedgerHQHardwareWallet, 1)

	m := matrix.MatrixOfFactorSourceIDs{
		Primary:              matrix.NewPrimaryRole(1, []factors.FactorSourceID{device}, nil),
		Recovery:             matrix.NewRecoveryRole([]factors.FactorSourceID{ledger}),
		DaysUntilAutoConfirm: 14,
	}
	m.Confirmation = matrix.NewConfirmationRole[factors.FactorSourceID](nil)

	s, err := matrix.NewSecurityStructure("shield", m, device)
	require.NoError(t, err)

	require.NoError(t, p.AddSecurityStructure(s))
	assert.Error(t, p.AddSecurityStructure(s), "duplicate id")

	got, err := p.SecurityStructure(s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.Matrix, got.Matrix)

	_, err = p.SecurityStructure(matrix.NewMetadata("x").ID)
	assert.ErrorIs(t, err, ErrSecurityStructureNotFound)

	unknown, err := matrix.NewSecurityStructure("bad", m, sourceID(factors.ArculusCard, 1))
	require.NoError(t, err)
	assert.ErrorIs(t, p.AddSecurityStructure(unknown), factors.ErrFactorSourceDiscrepancy)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := storage.Open("profile", storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func TestStoreSaveLoad(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoProfile)

	p, account := testProfile(t)
	require.NoError(t, s.Save(p))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, p.Header.ID, loaded.Header.ID)
	assert.Equal(t, p.FactorSources.IDs(), loaded.FactorSources.IDs())
	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, account.Address, loaded.Accounts[0].Address)
	assert.Len(t, loaded.Personas, 1)

	// Shrinking lists removes stale records.
	p.Personas = nil
	require.NoError(t, s.Save(p))

	loaded, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded.Personas)
}

func TestStoreMarkFactorSourcesUsed(t *testing.T) {
	s := newTestStore(t)

	p, _ := testProfile(t)
	require.NoError(t, s.Save(p))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	device := sourceID(factors.Device, 1)

	require.NoError(t, s.MarkFactorSourcesUsed([]factors.FactorSourceID{device}, at))

	loaded, err := s.Load()
	require.NoError(t, err)

	fs, ok := loaded.FactorSources.Get(device)
	require.True(t, ok)
	assert.True(t, fs.Common.LastUsedOn.Equal(at))
}

func TestBackupExportImport(t *testing.T) {
	src := newTestStore(t)

	_, err := src.ExportBackup()
	assert.ErrorIs(t, err, ErrNoProfile)

	p, account := testProfile(t)
	require.NoError(t, src.Save(p))

	data, err := src.ExportBackup()
	require.NoError(t, err)

	dst := newTestStore(t)
	imported, err := dst.ImportBackup(data)
	require.NoError(t, err)
	assert.Equal(t, p.Header.ID, imported.Header.ID)

	loaded, err := dst.Load()
	require.NoError(t, err)

	found, err := loaded.EntityByAddress(account.Address)
	require.NoError(t, err)
	assert.Equal(t, account.DisplayName, found.DisplayName)

	data[len(data)/2] ^= 0xff
	_, err = dst.ImportBackup(data)
	assert.Error(t, err)
}
