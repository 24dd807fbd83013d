package matrix

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WalletCore/internal/factors"
)

func fsID(kind factors.FactorSourceKind, b byte) factors.FactorSourceID {
	return factors.MustFactorSourceIDFromHash(kind, [32]byte{byte(kind), b})
}

var (
	device    = fsID(factors.Device, 1)
	ledger    = fsID(factors.LedgerHQHardwareWallet, 1)
	ledger2   = fsID(factors.LedgerHQHardwareWallet, 2)
	arculus   = fsID(factors.ArculusCard, 1)
	password  = fsID(factors.Password, 1)
	mnemonic  = fsID(factors.OffDeviceMnemonic, 1)
	mnemonic2 = fsID(factors.OffDeviceMnemonic, 2)
)

func TestDuplicateThresholdFactorIsForeverInvalid(t *testing.T) {
	for _, kind := range []RoleKind{Primary, Recovery, Confirmation} {
		res := NewRoleBuilder(kind).WithFactors(0, nil, []factors.FactorSourceID{ledger, ledger}).Validate()
		assert.Equal(t, ForeverInvalid, res.Status, kind.String())
		assert.Equal(t, FactorSourceAlreadyPresent, res.Reason, kind.String())
	}

	res := NewRoleBuilder(Primary).WithFactors(1, []factors.FactorSourceID{ledger, ledger}, nil).Validate()
	assert.Equal(t, ForeverInvalid, res.Status)
	assert.Equal(t, FactorSourceAlreadyPresent, res.Reason)

	res = NewRoleBuilder(Primary).WithFactors(1, []factors.FactorSourceID{ledger}, []factors.FactorSourceID{ledger}).Validate()
	assert.Equal(t, FactorSourceAlreadyPresent, res.Reason)
}

func TestRecoveryAndConfirmationCannotSetThreshold(t *testing.T) {
	res := NewRoleBuilder(Recovery).WithFactors(1, nil, []factors.FactorSourceID{ledger}).Validate()
	assert.Equal(t, BasicViolation, res.Status)
	assert.Equal(t, RecoveryCannotSetThreshold, res.Reason)

	res = NewRoleBuilder(Confirmation).WithFactors(2, nil, []factors.FactorSourceID{ledger}).Validate()
	assert.Equal(t, BasicViolation, res.Status)
	assert.Equal(t, ConfirmationCannotSetThreshold, res.Reason)

	b := NewRoleBuilder(Recovery)
	res = b.SetThreshold(1)
	assert.Equal(t, RecoveryCannotSetThreshold, res.Reason)
	assert.Zero(t, b.Threshold(), "rejected mutation must not apply")
}

func TestRecoveryConfirmationOverlapIsForeverInvalid(t *testing.T) {
	m := NewMatrixBuilder()
	m.Primary().WithFactors(1, []factors.FactorSourceID{device}, nil)
	m.Recovery().WithFactors(0, nil, []factors.FactorSourceID{ledger, arculus})
	m.Confirmation().WithFactors(0, nil, []factors.FactorSourceID{arculus})

	res := m.Validate()
	assert.Equal(t, ForeverInvalid, res.Status)
	assert.Equal(t, RecoveryAndConfirmationFactorsOverlap, res.Reason)

	// Severity beats fixable violations in other roles.
	m.Primary().WithFactors(3, []factors.FactorSourceID{device}, nil)
	assert.Equal(t, RecoveryAndConfirmationFactorsOverlap, m.Validate().Reason)

	_, err := m.Build()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, RecoveryAndConfirmationFactorsOverlap, verr.Result.Reason)
}

func TestPrimaryRules(t *testing.T) {
	cases := []struct {
		name      string
		threshold uint8
		list      []factors.FactorSourceID
		override  []factors.FactorSourceID
		want      Reason
	}{
		{"two devices", 1, []factors.FactorSourceID{device, fsID(factors.Device, 2)}, nil, PrimaryCannotHaveMultipleDevices},
		{"password override", 1, []factors.FactorSourceID{device}, []factors.FactorSourceID{password}, PrimaryCannotHavePasswordInOverrideList},
		{"empty", 0, nil, nil, RoleMustHaveAtLeastOneFactor},
		{"threshold too high", 3, []factors.FactorSourceID{device, ledger}, nil, ThresholdHigherThanThresholdFactorsLen},
		{"zero threshold", 0, []factors.FactorSourceID{device}, nil, PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero},
		{"lone password", 1, []factors.FactorSourceID{password}, nil, PrimaryRoleWithPasswordInThresholdListMustHaveAnotherFactor},
		{"password threshold one", 1, []factors.FactorSourceID{password, device}, nil, PrimaryRoleWithPasswordInThresholdListMustThresholdGreaterThanOne},
		{"valid", 2, []factors.FactorSourceID{password, device}, []factors.FactorSourceID{ledger}, NoViolation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewRoleBuilder(Primary).WithFactors(tc.threshold, tc.list, tc.override).Validate()
			assert.Equal(t, tc.want, res.Reason)
			assert.Equal(t, tc.want.Status(), res.Status)
		})
	}
}

func TestRecoveryAndConfirmationRejectThresholdFactors(t *testing.T) {
	b := NewRoleBuilder(Recovery)
	res := b.AddToThreshold(ledger)
	assert.Equal(t, RecoveryRoleThresholdFactorsNotSupported, res.Reason)
	assert.Empty(t, b.ThresholdFactors())

	res = b.AddToOverride(password)
	assert.Equal(t, RecoveryRolePasswordNotSupported, res.Reason)
	assert.Empty(t, b.OverrideFactors())

	c := NewRoleBuilder(Confirmation)
	assert.Equal(t, ConfirmationRoleThresholdFactorsNotSupported, c.AddToThreshold(ledger).Reason)
	assert.True(t, c.AddToOverride(password).IsValid())
}

func TestMutatorsApplyFixableViolations(t *testing.T) {
	b := NewRoleBuilder(Primary)

	res := b.AddToThreshold(device)
	assert.Equal(t, PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero, res.Reason)
	assert.Len(t, b.ThresholdFactors(), 1, "not yet valid mutations apply")

	res = b.SetThreshold(2)
	assert.Equal(t, ThresholdHigherThanThresholdFactorsLen, res.Reason)

	assert.True(t, b.AddToThreshold(ledger).IsValid())

	res = b.AddToThreshold(ledger)
	assert.Equal(t, FactorSourceAlreadyPresent, res.Reason)
	assert.Len(t, b.ThresholdFactors(), 2, "forever invalid mutations are rejected")

	assert.True(t, b.RemoveFactor(ledger).IsValid())
	assert.Equal(t, uint8(1), b.Threshold(), "threshold follows the shrinking list")

	assert.Equal(t, FactorSourceNotFound, b.RemoveFactor(arculus).Reason)

	role, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []factors.FactorSourceID{device}, role.ThresholdFactors())
}

func TestLonePrimaryFactorMustNotBeReused(t *testing.T) {
	m := NewMatrixBuilder()
	m.Primary().WithFactors(1, []factors.FactorSourceID{ledger}, nil)
	m.Recovery().WithFactors(0, nil, []factors.FactorSourceID{ledger})
	m.Confirmation().WithFactors(0, nil, []factors.FactorSourceID{mnemonic})

	res := m.Validate()
	assert.Equal(t, NotYetValid, res.Status)
	assert.Equal(t, SingleFactorUsedInPrimaryMustNotBeUsedInAnyOtherRole, res.Reason)

	m.Primary().AddToThreshold(device)
	assert.True(t, m.Validate().IsValid())
}

func TestMatrixBuilderDays(t *testing.T) {
	m := NewMatrixBuilder()
	assert.Equal(t, DefaultDaysUntilAutoConfirm, m.DaysUntilAutoConfirm())

	res := m.SetDaysUntilAutoConfirm(0)
	assert.Equal(t, BasicViolation, res.Status)
	assert.Equal(t, DefaultDaysUntilAutoConfirm, m.DaysUntilAutoConfirm())

	assert.True(t, m.SetDaysUntilAutoConfirm(7).IsValid())
}

func TestMatrixBuildAndRebuild(t *testing.T) {
	m := NewMatrixBuilder()
	m.Primary().WithFactors(2, []factors.FactorSourceID{device, ledger}, nil)
	m.Recovery().WithFactors(0, nil, []factors.FactorSourceID{ledger2, mnemonic})
	m.Confirmation().WithFactors(0, nil, []factors.FactorSourceID{mnemonic2})

	built, err := m.Build()
	require.NoError(t, err)
	assert.True(t, built.Validate().IsValid())
	assert.Len(t, built.AllFactors(), 5)

	again, err := NewMatrixBuilderFrom(built).Build()
	require.NoError(t, err)
	assert.Equal(t, built, again)
}

func TestRoleResolveRoundTrip(t *testing.T) {
	sources := factors.MustFactorSources(
		factors.NewFactorSource(ledger, "ledger"),
		factors.NewFactorSource(device, "phone"),
		factors.NewFactorSource(arculus, "card"),
		factors.NewFactorSource(mnemonic, "paper"),
	)

	ids := NewPrimaryRole(2, []factors.FactorSourceID{ledger, device, mnemonic}, []factors.FactorSourceID{arculus})

	resolved, err := ResolveRole(ids, sources)
	require.NoError(t, err)
	assert.Equal(t, "ledger", resolved.ThresholdFactors()[0].Hint.Label)

	back := resolved.IDs()
	assert.Equal(t, ids, back)
	assert.Equal(t, ids.ThresholdFactors(), back.ThresholdFactors())
	assert.Equal(t, ids.OverrideFactors(), back.OverrideFactors())

	_, err = ResolveRole(NewRecoveryRole([]factors.FactorSourceID{ledger2}), sources)
	assert.True(t, errors.Is(err, factors.ErrFactorSourceDiscrepancy))
}

func TestNewRolePanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewPrimaryRole(1, []factors.FactorSourceID{device}, []factors.FactorSourceID{device})
	})
	assert.Panics(t, func() {
		NewPrimaryRole(2, []factors.FactorSourceID{device}, nil)
	})
}

func TestRoleJSONRoundTrip(t *testing.T) {
	role := NewPrimaryRole(1, []factors.FactorSourceID{device, ledger}, []factors.FactorSourceID{arculus})

	data, err := json.Marshal(role)
	require.NoError(t, err)

	var decoded RoleWithFactorSourceIDs
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, role, decoded)

	bad := []byte(`{"kind":"primary","threshold":1,"thresholdFactors":["` + device.String() + `","` + device.String() + `"],"overrideFactors":[]}`)
	assert.Error(t, json.Unmarshal(bad, &decoded))
}

func TestSecurityStructure(t *testing.T) {
	m := MatrixOfFactorSourceIDs{
		Primary:              NewPrimaryRole(1, []factors.FactorSourceID{device}, nil),
		Recovery:             NewRecoveryRole([]factors.FactorSourceID{ledger}),
		Confirmation:         NewConfirmationRole([]factors.FactorSourceID{mnemonic}),
		DaysUntilAutoConfirm: DefaultDaysUntilAutoConfirm,
	}

	_, err := NewSecurityStructure("no rola", m, factors.FactorSourceID{})
	assert.ErrorIs(t, err, ErrMissingAuthenticationSigningFactor)

	s, err := NewSecurityStructure("main", m, device)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), SecurityStructureID{})

	sources := factors.MustFactorSources(
		factors.NewFactorSource(device, "phone"),
		factors.NewFactorSource(ledger, "ledger"),
		factors.NewFactorSource(mnemonic, "paper"),
	)

	resolved, err := ResolveSecurityStructure(s, sources)
	require.NoError(t, err)
	assert.Equal(t, s, resolved.IDs())

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded SecurityStructureOfFactorSourceIDs
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.Matrix, decoded.Matrix)
	assert.Equal(t, s.ID(), decoded.ID())
}
