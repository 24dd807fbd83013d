package matrix

import (
	"fmt"

	"WalletCore/internal/factors"
)

// ValidationStatus classifies a role or matrix under construction.
type ValidationStatus uint8

const (
	// Valid means the role or matrix can be built.
	Valid ValidationStatus = iota

	// NotYetValid violations can be fixed by further edits.
	NotYetValid

	// ForeverInvalid violations cannot be fixed by adding factors.
	ForeverInvalid

	// BasicViolation is a structural error independent of the factors listed.
	BasicViolation
)

// String returns the text form of the status.
func (s ValidationStatus) String() string {
	switch s {
	case Valid:
		return "valid"
	case NotYetValid:
		return "notYetValid"
	case ForeverInvalid:
		return "foreverInvalid"
	case BasicViolation:
		return "basicViolation"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Reason explains a violation.
type Reason uint8

const (
	// NoViolation accompanies Valid.
	NoViolation Reason = iota

	// Basic violations.
	RecoveryCannotSetThreshold
	ConfirmationCannotSetThreshold
	FactorSourceNotFound
	NumberOfDaysUntilAutoConfirmMustBeGreaterThanZero

	// Forever invalid.
	FactorSourceAlreadyPresent
	PrimaryCannotHaveMultipleDevices
	PrimaryCannotContainTrustedContact
	PrimaryCannotHavePasswordInOverrideList
	RecoveryRoleThresholdFactorsNotSupported
	ConfirmationRoleThresholdFactorsNotSupported
	RecoveryRolePasswordNotSupported
	RecoveryAndConfirmationFactorsOverlap

	// Not yet valid.
	RoleMustHaveAtLeastOneFactor
	ThresholdHigherThanThresholdFactorsLen
	PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero
	PrimaryRoleWithPasswordInThresholdListMustHaveAnotherFactor
	PrimaryRoleWithPasswordInThresholdListMustThresholdGreaterThanOne
	SingleFactorUsedInPrimaryMustNotBeUsedInAnyOtherRole
)

// reasonInfo is the class and text form of a reason.
type reasonInfo struct {
	status ValidationStatus
	name   string
}

var reasons = map[Reason]reasonInfo{
	NoViolation: {Valid, "noViolation"},

	RecoveryCannotSetThreshold:                        {BasicViolation, "recoveryCannotSetThreshold"},
	ConfirmationCannotSetThreshold:                    {BasicViolation, "confirmationCannotSetThreshold"},
	FactorSourceNotFound:                              {BasicViolation, "factorSourceNotFound"},
	NumberOfDaysUntilAutoConfirmMustBeGreaterThanZero: {BasicViolation, "numberOfDaysUntilAutoConfirmMustBeGreaterThanZero"},

	FactorSourceAlreadyPresent:                   {ForeverInvalid, "factorSourceAlreadyPresent"},
	PrimaryCannotHaveMultipleDevices:             {ForeverInvalid, "primaryCannotHaveMultipleDevices"},
	PrimaryCannotContainTrustedContact:           {ForeverInvalid, "primaryCannotContainTrustedContact"},
	PrimaryCannotHavePasswordInOverrideList:      {ForeverInvalid, "primaryCannotHavePasswordInOverrideList"},
	RecoveryRoleThresholdFactorsNotSupported:     {ForeverInvalid, "recoveryRoleThresholdFactorsNotSupported"},
	ConfirmationRoleThresholdFactorsNotSupported: {ForeverInvalid, "confirmationRoleThresholdFactorsNotSupported"},
	RecoveryRolePasswordNotSupported:             {ForeverInvalid, "recoveryRolePasswordNotSupported"},
	RecoveryAndConfirmationFactorsOverlap:        {ForeverInvalid, "recoveryAndConfirmationFactorsOverlap"},

	RoleMustHaveAtLeastOneFactor:                                      {NotYetValid, "roleMustHaveAtLeastOneFactor"},
	ThresholdHigherThanThresholdFactorsLen:                            {NotYetValid, "thresholdHigherThanThresholdFactorsLen"},
	PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero:    {NotYetValid, "primaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero"},
	PrimaryRoleWithPasswordInThresholdListMustHaveAnotherFactor:       {NotYetValid, "primaryRoleWithPasswordInThresholdListMustHaveAnotherFactor"},
	PrimaryRoleWithPasswordInThresholdListMustThresholdGreaterThanOne: {NotYetValid, "primaryRoleWithPasswordInThresholdListMustThresholdGreaterThanOne"},
	SingleFactorUsedInPrimaryMustNotBeUsedInAnyOtherRole:              {NotYetValid, "singleFactorUsedInPrimaryMustNotBeUsedInAnyOtherRole"},
}

// Status returns the class the reason belongs to.
func (r Reason) Status() ValidationStatus {
	return reasons[r].status
}

// String returns the text form of the reason.
func (r Reason) String() string {
	if info, ok := reasons[r]; ok {
		return info.name
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// RoleBuilderMutateResult is the outcome of validating a role or matrix.
type RoleBuilderMutateResult struct {
	Status ValidationStatus // Status is the violation class
	Reason Reason           // Reason explains the violation
	Role   RoleKind         // Role is the offending role
}

// valid is the result without violation.
var valid = RoleBuilderMutateResult{}

// violation builds a result whose class follows from the reason.
func violation(role RoleKind, reason Reason) RoleBuilderMutateResult {
	return RoleBuilderMutateResult{Status: reason.Status(), Reason: reason, Role: role}
}

// IsValid reports whether no violation was found.
func (r RoleBuilderMutateResult) IsValid() bool {
	return r.Status == Valid
}

// Err returns nil for Valid and a *ValidationError otherwise.
func (r RoleBuilderMutateResult) Err() error {
	if r.IsValid() {
		return nil
	}
	return &ValidationError{Result: r}
}

// String returns a short human readable form.
func (r RoleBuilderMutateResult) String() string {
	if r.IsValid() {
		return "valid"
	}
	return fmt.Sprintf("%s(%s) in %s role", r.Status, r.Reason, r.Role)
}

// ValidationError wraps a failed validation.
type ValidationError struct {
	Result RoleBuilderMutateResult // Result is the failing validation
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "invalid security structure: " + e.Result.String()
}

// mostSevere returns the first result of the highest class.
func mostSevere(results ...RoleBuilderMutateResult) RoleBuilderMutateResult {
	best := valid
	for _, r := range results {
		if r.Status > best.Status {
			best = r
		}
	}
	return best
}

// validateRole checks one role.
// Structural errors win over forever invalid ones, which win over fixable ones.
func validateRole(kind RoleKind, threshold uint8, thresholdFactors, overrideFactors []factors.FactorSourceID) RoleBuilderMutateResult {
	return mostSevere(
		basicRoleViolation(kind, threshold),
		foreverRoleViolation(kind, thresholdFactors, overrideFactors),
		notYetRoleViolation(kind, threshold, thresholdFactors, overrideFactors),
	)
}

// basicRoleViolation checks structure independent of factors.
func basicRoleViolation(kind RoleKind, threshold uint8) RoleBuilderMutateResult {
	switch {
	case kind == Recovery && threshold != 0:
		return violation(kind, RecoveryCannotSetThreshold)
	case kind == Confirmation && threshold != 0:
		return violation(kind, ConfirmationCannotSetThreshold)
	default:
		return valid
	}
}

// foreverRoleViolation checks violations no further addition can fix.
func foreverRoleViolation(kind RoleKind, thresholdFactors, overrideFactors []factors.FactorSourceID) RoleBuilderMutateResult {
	seen := make(map[factors.FactorSourceID]bool)
	for _, id := range append(append([]factors.FactorSourceID{}, thresholdFactors...), overrideFactors...) {
		if seen[id] {
			return violation(kind, FactorSourceAlreadyPresent)
		}
		seen[id] = true
	}

	switch kind {
	case Primary:
		devices := countKind(thresholdFactors, factors.Device) + countKind(overrideFactors, factors.Device)
		if devices > 1 {
			return violation(kind, PrimaryCannotHaveMultipleDevices)
		}
		if countKind(thresholdFactors, factors.TrustedContact)+countKind(overrideFactors, factors.TrustedContact) > 0 {
			return violation(kind, PrimaryCannotContainTrustedContact)
		}
		if countKind(overrideFactors, factors.Password) > 0 {
			return violation(kind, PrimaryCannotHavePasswordInOverrideList)
		}

	case Recovery:
		if len(thresholdFactors) > 0 {
			return violation(kind, RecoveryRoleThresholdFactorsNotSupported)
		}
		if countKind(overrideFactors, factors.Password) > 0 {
			return violation(kind, RecoveryRolePasswordNotSupported)
		}

	case Confirmation:
		if len(thresholdFactors) > 0 {
			return violation(kind, ConfirmationRoleThresholdFactorsNotSupported)
		}
	}

	return valid
}

// notYetRoleViolation checks violations further edits can fix.
func notYetRoleViolation(kind RoleKind, threshold uint8, thresholdFactors, overrideFactors []factors.FactorSourceID) RoleBuilderMutateResult {
	if kind != Confirmation && len(thresholdFactors) == 0 && len(overrideFactors) == 0 {
		return violation(kind, RoleMustHaveAtLeastOneFactor)
	}

	if int(threshold) > len(thresholdFactors) {
		return violation(kind, ThresholdHigherThanThresholdFactorsLen)
	}

	if kind != Primary {
		return valid
	}

	if len(thresholdFactors) > 0 && threshold == 0 {
		return violation(kind, PrimaryRoleWithThresholdFactorsCannotHaveAThresholdValueOfZero)
	}

	if countKind(thresholdFactors, factors.Password) > 0 {
		if len(thresholdFactors) < 2 {
			return violation(kind, PrimaryRoleWithPasswordInThresholdListMustHaveAnotherFactor)
		}
		if threshold < 2 {
			return violation(kind, PrimaryRoleWithPasswordInThresholdListMustThresholdGreaterThanOne)
		}
	}

	return valid
}

// countKind counts ids of the given kind.
func countKind(ids []factors.FactorSourceID, kind factors.FactorSourceKind) int {
	n := 0
	for _, id := range ids {
		if id.Kind() == kind {
			n++
		}
	}
	return n
}

// Validate checks the role with the same rules the builder applies.
func (r Role[F]) Validate() RoleBuilderMutateResult {
	ids := r.IDs()
	return validateRole(r.kind, r.threshold, ids.thresholdFactors, ids.overrideFactors)
}

// Validate checks every role and the combination rules between them.
func (m Matrix[F]) Validate() RoleBuilderMutateResult {
	ids := m.IDs()
	return validateMatrix(ids.Primary, ids.Recovery, ids.Confirmation, ids.DaysUntilAutoConfirm)
}

// validateMatrix returns the most severe role or combination violation.
func validateMatrix(primary, recovery, confirmation RoleWithFactorSourceIDs, days uint16) RoleBuilderMutateResult {
	return mostSevere(
		primary.Validate(),
		recovery.Validate(),
		confirmation.Validate(),
		combinationViolation(primary, recovery, confirmation, days),
	)
}

// combinationViolation checks rules spanning several roles.
func combinationViolation(primary, recovery, confirmation RoleWithFactorSourceIDs, days uint16) RoleBuilderMutateResult {
	if days == 0 {
		return violation(Confirmation, NumberOfDaysUntilAutoConfirmMustBeGreaterThanZero)
	}

	for _, id := range recovery.AllFactors() {
		if confirmation.Contains(id) {
			return violation(Confirmation, RecoveryAndConfirmationFactorsOverlap)
		}
	}

	if primary.IsEmpty() && recovery.IsEmpty() && confirmation.IsEmpty() {
		return violation(Primary, RoleMustHaveAtLeastOneFactor)
	}

	if all := primary.AllFactors(); len(all) == 1 {
		if recovery.Contains(all[0]) || confirmation.Contains(all[0]) {
			return violation(Primary, SingleFactorUsedInPrimaryMustNotBeUsedInAnyOtherRole)
		}
	}

	return valid
}
