package matrix

import (
	"fmt"
	"slices"

	"WalletCore/internal/factors"
)

// RoleBuilder edits a role one step at a time, validating after each step.
type RoleBuilder struct {
	kind             RoleKind                 // kind is the role being built
	threshold        uint8                    // threshold is the current threshold
	thresholdFactors []factors.FactorSourceID // thresholdFactors is the current threshold list
	overrideFactors  []factors.FactorSourceID // overrideFactors is the current override list
}

// NewRoleBuilder creates an empty builder for a role kind.
func NewRoleBuilder(kind RoleKind) *RoleBuilder {
	return &RoleBuilder{kind: kind}
}

// WithFactors replaces the builder state without validating it.
func (b *RoleBuilder) WithFactors(threshold uint8, thresholdFactors, overrideFactors []factors.FactorSourceID) *RoleBuilder {
	b.threshold = threshold
	b.thresholdFactors = slices.Clone(thresholdFactors)
	b.overrideFactors = slices.Clone(overrideFactors)
	return b
}

// Kind returns the role kind.
func (b *RoleBuilder) Kind() RoleKind {
	return b.kind
}

// Threshold returns the current threshold.
func (b *RoleBuilder) Threshold() uint8 {
	return b.threshold
}

// ThresholdFactors returns a copy of the current threshold list.
func (b *RoleBuilder) ThresholdFactors() []factors.FactorSourceID {
	return slices.Clone(b.thresholdFactors)
}

// OverrideFactors returns a copy of the current override list.
func (b *RoleBuilder) OverrideFactors() []factors.FactorSourceID {
	return slices.Clone(b.overrideFactors)
}

// Validate checks the current state.
func (b *RoleBuilder) Validate() RoleBuilderMutateResult {
	return validateRole(b.kind, b.threshold, b.thresholdFactors, b.overrideFactors)
}

// AddToThreshold appends a factor to the threshold list.
func (b *RoleBuilder) AddToThreshold(id factors.FactorSourceID) RoleBuilderMutateResult {
	next := b.clone()
	next.thresholdFactors = append(next.thresholdFactors, id)
	return b.apply(next)
}

// AddToOverride appends a factor to the override list.
func (b *RoleBuilder) AddToOverride(id factors.FactorSourceID) RoleBuilderMutateResult {
	next := b.clone()
	next.overrideFactors = append(next.overrideFactors, id)
	return b.apply(next)
}

// RemoveFactor removes a factor from whichever list holds it.
// The threshold is lowered if it would exceed the remaining threshold factors.
func (b *RoleBuilder) RemoveFactor(id factors.FactorSourceID) RoleBuilderMutateResult {
	next := b.clone()

	if i := slices.Index(next.thresholdFactors, id); i >= 0 {
		next.thresholdFactors = slices.Delete(next.thresholdFactors, i, i+1)
		if int(next.threshold) > len(next.thresholdFactors) {
			next.threshold = uint8(len(next.thresholdFactors))
		}
		return b.apply(next)
	}

	if i := slices.Index(next.overrideFactors, id); i >= 0 {
		next.overrideFactors = slices.Delete(next.overrideFactors, i, i+1)
		return b.apply(next)
	}

	return violation(b.kind, FactorSourceNotFound)
}

// SetThreshold changes the threshold.
func (b *RoleBuilder) SetThreshold(threshold uint8) RoleBuilderMutateResult {
	next := b.clone()
	next.threshold = threshold
	return b.apply(next)
}

// apply adopts next unless it introduces a structural or forever invalid violation.
// Fixable violations are applied so the user can keep editing.
func (b *RoleBuilder) apply(next *RoleBuilder) RoleBuilderMutateResult {
	before := b.Validate()
	after := next.Validate()

	if (after.Status == BasicViolation || after.Status == ForeverInvalid) && after != before {
		return after
	}

	*b = *next

	return after
}

// clone returns a deep copy.
func (b *RoleBuilder) clone() *RoleBuilder {
	return &RoleBuilder{
		kind:             b.kind,
		threshold:        b.threshold,
		thresholdFactors: slices.Clone(b.thresholdFactors),
		overrideFactors:  slices.Clone(b.overrideFactors),
	}
}

// Build returns the role, or a *ValidationError if the state is not valid.
func (b *RoleBuilder) Build() (RoleWithFactorSourceIDs, error) {
	if err := b.Validate().Err(); err != nil {
		return RoleWithFactorSourceIDs{}, err
	}
	return NewRole(b.kind, b.threshold, b.thresholdFactors, b.overrideFactors), nil
}

// MatrixBuilder composes the three role builders.
type MatrixBuilder struct {
	primary      *RoleBuilder // primary is the primary role builder
	recovery     *RoleBuilder // recovery is the recovery role builder
	confirmation *RoleBuilder // confirmation is the confirmation role builder
	days         uint16       // days is the auto confirm delay
}

// NewMatrixBuilder creates an empty builder with the default auto confirm delay.
func NewMatrixBuilder() *MatrixBuilder {
	return &MatrixBuilder{
		primary:      NewRoleBuilder(Primary),
		recovery:     NewRoleBuilder(Recovery),
		confirmation: NewRoleBuilder(Confirmation),
		days:         DefaultDaysUntilAutoConfirm,
	}
}

// Primary returns the primary role builder.
func (m *MatrixBuilder) Primary() *RoleBuilder {
	return m.primary
}

// Recovery returns the recovery role builder.
func (m *MatrixBuilder) Recovery() *RoleBuilder {
	return m.recovery
}

// Confirmation returns the confirmation role builder.
func (m *MatrixBuilder) Confirmation() *RoleBuilder {
	return m.confirmation
}

// Role returns the builder for a role kind.
func (m *MatrixBuilder) Role(kind RoleKind) (*RoleBuilder, error) {
	switch kind {
	case Primary:
		return m.primary, nil
	case Recovery:
		return m.recovery, nil
	case Confirmation:
		return m.confirmation, nil
	default:
		return nil, fmt.Errorf("unknown role kind %d", uint8(kind))
	}
}

// DaysUntilAutoConfirm returns the current delay.
func (m *MatrixBuilder) DaysUntilAutoConfirm() uint16 {
	return m.days
}

// SetDaysUntilAutoConfirm changes the delay; zero is rejected.
func (m *MatrixBuilder) SetDaysUntilAutoConfirm(days uint16) RoleBuilderMutateResult {
	if days == 0 {
		return violation(Confirmation, NumberOfDaysUntilAutoConfirmMustBeGreaterThanZero)
	}

	m.days = days

	return valid
}

// Validate returns the most severe violation across roles and their combination.
func (m *MatrixBuilder) Validate() RoleBuilderMutateResult {
	roles := make([]RoleWithFactorSourceIDs, 0, 3)
	results := make([]RoleBuilderMutateResult, 0, 4)

	for _, b := range []*RoleBuilder{m.primary, m.recovery, m.confirmation} {
		results = append(results, b.Validate())

		// An over-high threshold does not matter for combination checks.
		if r, err := newRole[factors.FactorSourceID](b.kind, 0, b.thresholdFactors, b.overrideFactors); err == nil {
			roles = append(roles, r)
		}
	}

	// Roles listing a factor twice cannot be constructed.
	if len(roles) == 3 {
		results = append(results, combinationViolation(roles[0], roles[1], roles[2], m.days))
	}

	return mostSevere(results...)
}

// Build returns the matrix, or a *ValidationError if it is not valid.
func (m *MatrixBuilder) Build() (MatrixOfFactorSourceIDs, error) {
	if err := m.Validate().Err(); err != nil {
		return MatrixOfFactorSourceIDs{}, err
	}

	primary, _ := m.primary.Build()
	recovery, _ := m.recovery.Build()
	confirmation, _ := m.confirmation.Build()

	return MatrixOfFactorSourceIDs{
		Primary:              primary,
		Recovery:             recovery,
		Confirmation:         confirmation,
		DaysUntilAutoConfirm: m.days,
	}, nil
}

// NewMatrixBuilderFrom seeds a builder with an existing matrix.
func NewMatrixBuilderFrom(existing MatrixOfFactorSourceIDs) *MatrixBuilder {
	b := NewMatrixBuilder()
	b.days = existing.DaysUntilAutoConfirm

	for _, pair := range []struct {
		builder *RoleBuilder
		role    RoleWithFactorSourceIDs
	}{
		{b.primary, existing.Primary},
		{b.recovery, existing.Recovery},
		{b.confirmation, existing.Confirmation},
	} {
		pair.builder.WithFactors(pair.role.threshold, pair.role.thresholdFactors, pair.role.overrideFactors)
	}

	return b
}
