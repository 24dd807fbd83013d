package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/address"
	"WalletCore/internal/factors"
	"WalletCore/internal/matrix"
)

// listFixture is a factor list over fresh sources with signatures over one payload.
type listFixture struct {
	f         *fixture
	payload   PayloadID
	instances []factors.HierarchicalDeterministicFactorInstance
}

func newListFixture(t *testing.T, kinds ...factors.FactorSourceKind) *listFixture {
	t.Helper()

	f := newFixture(t)
	lf := &listFixture{f: f, payload: TransactionIntent{Nonce: 7}.PayloadID()}

	for i, kind := range kinds {
		id := f.source(kind, byte(i))
		lf.instances = append(lf.instances, f.instance(id, factors.NewAccountPath(address.Mainnet, factors.SecurifiedSpaceOffset)))
	}

	return lf
}

func (lf *listFixture) signature(i int) HDSignature {
	inst := lf.instances[i]
	return HDSignature{
		Payload:   lf.payload,
		Instance:  inst,
		Signature: lf.f.secrets[inst.Key()].Sign(lf.payload.Hash),
	}
}

func (lf *listFixture) neglected(i int) NeglectedFactor {
	return NeglectedFactor{Reason: UserExplicitlySkipped, FactorSourceID: lf.instances[i].FactorSourceID}
}

func TestSubStateInsertIsIdempotent(t *testing.T) {
	lf := newListFixture(t, factors.Device)
	sig := lf.signature(0)

	s := NewPetitionForFactorsSubState[HDSignature]()
	assert.True(t, s.Insert(sig.FactorSourceID(), sig))
	assert.False(t, s.Insert(sig.FactorSourceID(), sig))

	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Snapshot(), 1)
	assert.True(t, s.Contains(sig.FactorSourceID()))
}

func TestThresholdSufficiencyRegardlessOfOrder(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.OffDeviceMnemonic, factors.LedgerHQHardwareWallet)

	orders := [][]int{{0, 1}, {1, 0}, {0, 2}, {2, 0}, {1, 2}, {2, 1}}

	for _, order := range orders {
		p := NewThresholdPetition(2, lf.instances)

		p.AddSignature(lf.signature(order[0]))
		assert.Equal(t, Pending, p.Status(), "order %v after one signature", order)

		p.AddSignature(lf.signature(order[1]))
		assert.Equal(t, Success, p.Status(), "order %v", order)
	}
}

func TestThresholdFailsOnceUnreachable(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.OffDeviceMnemonic, factors.LedgerHQHardwareWallet)
	p := NewThresholdPetition(2, lf.instances)

	p.Neglect(lf.neglected(0))
	assert.Equal(t, Pending, p.Status())

	p.Neglect(lf.neglected(0))
	assert.Equal(t, Pending, p.Status(), "repeat neglect must not count twice")

	p.Neglect(lf.neglected(2))
	assert.Equal(t, Fail, p.Status())
}

func TestOverrideListNeedsOneSignature(t *testing.T) {
	lf := newListFixture(t, factors.ArculusCard, factors.LedgerHQHardwareWallet)
	p := NewOverridePetition(lf.instances)

	assert.Equal(t, 1, p.Required())
	p.Neglect(lf.neglected(0))
	assert.Equal(t, Pending, p.Status())

	p.AddSignature(lf.signature(1))
	assert.Equal(t, Success, p.Status())
}

func TestOverrideShortCircuitsThreshold(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.OffDeviceMnemonic, factors.Password, factors.LedgerHQHardwareWallet)

	role := &PetitionForRole{
		kind:      matrix.Primary,
		threshold: NewThresholdPetition(3, lf.instances[:3]),
		override:  NewOverridePetition(lf.instances[3:]),
	}

	role.threshold.AddSignature(lf.signature(0))
	assert.Equal(t, Pending, role.Status())

	role.override.AddSignature(lf.signature(3))
	assert.Equal(t, Success, role.Status(), "one override signature is enough")
}

func TestRoleFailsOnlyWhenEveryListFails(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.LedgerHQHardwareWallet)

	role := &PetitionForRole{
		kind:      matrix.Primary,
		threshold: NewThresholdPetition(1, lf.instances[:1]),
		override:  NewOverridePetition(lf.instances[1:]),
	}

	role.threshold.Neglect(lf.neglected(0))
	assert.Equal(t, Pending, role.Status())

	role.override.Neglect(lf.neglected(1))
	assert.Equal(t, Fail, role.Status())

	assert.Equal(t, Fail, (&PetitionForRole{kind: matrix.Confirmation}).Status())
}

func TestSignAfterNeglectPanics(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.LedgerHQHardwareWallet)

	p := NewThresholdPetition(1, lf.instances)
	p.Neglect(lf.neglected(0))
	assert.Panics(t, func() { p.AddSignature(lf.signature(0)) })

	p = NewThresholdPetition(1, lf.instances)
	p.AddSignature(lf.signature(1))
	assert.Panics(t, func() { p.Neglect(lf.neglected(1)) })
}

func TestAddSignatureOfUnlistedInstancePanics(t *testing.T) {
	lf := newListFixture(t, factors.Device, factors.LedgerHQHardwareWallet)
	p := NewThresholdPetition(1, lf.instances[:1])

	assert.Panics(t, func() { p.AddSignature(lf.signature(1)) })
}

func TestStatusIfSkippedFactorsLeavesPetitionUntouched(t *testing.T) {
	f := newFixture(t)
	device := f.source(factors.Device, 1)
	ledger := f.source(factors.LedgerHQHardwareWallet, 1)

	e := f.securified(shape{threshold: 2, primary: []factors.FactorSourceID{device, ledger}, recovery: []factors.FactorSourceID{ledger}})

	p, err := NewPetitionForTransaction(f.intent(1, e), SignTX(matrix.Primary))
	require.NoError(t, err)

	assert.Equal(t, Fail, p.StatusIfSkippedFactors(ledger))
	assert.Equal(t, Pending, p.Status())
	assert.Empty(t, p.NeglectedFactors())

	assert.Equal(t, []address.Address{e.Address}, p.EntitiesInvalidIfNeglected(device))
}

func TestTransactionIsConjunctionOverEntitiesAndRoles(t *testing.T) {
	f := newFixture(t)
	device := f.source(factors.Device, 1)
	ledger := f.source(factors.LedgerHQHardwareWallet, 1)
	arculus := f.source(factors.ArculusCard, 1)

	alice := f.securified(shape{threshold: 1, primary: []factors.FactorSourceID{device}, recovery: []factors.FactorSourceID{ledger}, confirmation: []factors.FactorSourceID{arculus}})
	bob := f.unsecured(f.source(factors.Device, 2))

	s := f.intent(1, alice, bob)
	p, err := NewPetitionForTransaction(s, SignTXWithRoles(matrix.Recovery, matrix.Confirmation))
	require.NoError(t, err)

	require.Len(t, p.Entities(), 2)
	require.Len(t, p.Entities()[0].Roles(), 2)

	for _, inst := range p.InstancesOf(ledger) {
		p.AddSignature(HDSignature{Payload: s.PayloadID(), Instance: inst, Signature: f.secrets[inst.Key()].Sign(s.PayloadID().Hash)})
	}
	assert.Equal(t, Pending, p.Entities()[0].Status(), "confirmation still missing")

	for _, inst := range p.InstancesOf(arculus) {
		p.AddSignature(HDSignature{Payload: s.PayloadID(), Instance: inst, Signature: f.secrets[inst.Key()].Sign(s.PayloadID().Hash)})
	}
	assert.Equal(t, Success, p.Entities()[0].Status())
	assert.Equal(t, Pending, p.Status(), "unsecured entity has not signed")

	assert.Len(t, p.Signatures(), 2)
}

func TestTransactionWithoutEntitiesSucceeds(t *testing.T) {
	f := newFixture(t)

	p, err := NewPetitionForTransaction(f.intent(1), SignTX(matrix.Primary))
	require.NoError(t, err)

	assert.Equal(t, Success, p.Status())
}

func TestPurposeWithoutRolesIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := NewPetitionForTransaction(f.intent(1), SignTXWithRoles())
	assert.Error(t, err)
}
