// Package matrix models roles, matrices of factors and security structures, and validates them as they are built.
package matrix

import (
	"encoding/json"
	"fmt"
	"slices"

	"WalletCore/internal/factors"
)

// RoleKind is the authorization tier of a role.
type RoleKind uint8

const (
	// Primary signs everyday transactions.
	Primary RoleKind = iota + 1

	// Recovery proposes a new security structure.
	Recovery

	// Confirmation confirms a recovery proposal.
	Confirmation
)

// String returns the text form of the role kind.
func (k RoleKind) String() string {
	switch k {
	case Primary:
		return "primary"
	case Recovery:
		return "recovery"
	case Confirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("role(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k RoleKind) MarshalText() ([]byte, error) {
	switch k {
	case Primary, Recovery, Confirmation:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown role kind %d", uint8(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RoleKind) UnmarshalText(text []byte) error {
	for _, candidate := range []RoleKind{Primary, Recovery, Confirmation} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown role kind %q", text)
}

// Factor is anything that names the factor source it belongs to.
type Factor interface {
	SourceID() factors.FactorSourceID
}

// Role is a threshold list and an override list of factors.
// Any one override factor satisfies the role on its own.
type Role[F Factor] struct {
	kind             RoleKind // kind is the tier this role authorizes
	threshold        uint8    // threshold is how many threshold factors must sign
	thresholdFactors []F      // thresholdFactors count toward the threshold
	overrideFactors  []F      // overrideFactors each satisfy the role alone
}

// RoleWithFactorSourceIDs references factors by id.
type RoleWithFactorSourceIDs = Role[factors.FactorSourceID]

// RoleWithFactorSources references resolved factor sources.
type RoleWithFactorSources = Role[factors.FactorSource]

// RoleWithFactorInstances references the derived keys of one entity.
type RoleWithFactorInstances = Role[factors.HierarchicalDeterministicFactorInstance]

// NewRole creates a role from already validated data.
// It panics if a factor source is listed twice or the threshold exceeds the threshold list.
func NewRole[F Factor](kind RoleKind, threshold uint8, thresholdFactors, overrideFactors []F) Role[F] {
	r, err := newRole(kind, threshold, thresholdFactors, overrideFactors)
	if err != nil {
		panic(err)
	}
	return r
}

// NewPrimaryRole creates a primary role. See NewRole.
func NewPrimaryRole[F Factor](threshold uint8, thresholdFactors, overrideFactors []F) Role[F] {
	return NewRole(Primary, threshold, thresholdFactors, overrideFactors)
}

// NewRecoveryRole creates a recovery role with only override factors.
func NewRecoveryRole[F Factor](overrideFactors []F) Role[F] {
	return NewRole[F](Recovery, 0, nil, overrideFactors)
}

// NewConfirmationRole creates a confirmation role with only override factors.
func NewConfirmationRole[F Factor](overrideFactors []F) Role[F] {
	return NewRole[F](Confirmation, 0, nil, overrideFactors)
}

// newRole is NewRole returning an error instead of panicking.
func newRole[F Factor](kind RoleKind, threshold uint8, thresholdFactors, overrideFactors []F) (Role[F], error) {
	seen := make(map[factors.FactorSourceID]bool, len(thresholdFactors)+len(overrideFactors))

	for _, f := range slices.Concat(thresholdFactors, overrideFactors) {
		id := f.SourceID()
		if seen[id] {
			return Role[F]{}, fmt.Errorf("%s role lists factor source %s twice", kind, id)
		}
		seen[id] = true
	}

	if int(threshold) > len(thresholdFactors) {
		return Role[F]{}, fmt.Errorf("%s role threshold %d exceeds %d threshold factors", kind, threshold, len(thresholdFactors))
	}

	return Role[F]{
		kind:             kind,
		threshold:        threshold,
		thresholdFactors: cloneOrNil(thresholdFactors),
		overrideFactors:  cloneOrNil(overrideFactors),
	}, nil
}

// cloneOrNil copies a list, normalising empty lists to nil.
func cloneOrNil[F any](fs []F) []F {
	if len(fs) == 0 {
		return nil
	}
	return slices.Clone(fs)
}

// Kind returns the role kind.
func (r Role[F]) Kind() RoleKind {
	return r.kind
}

// Threshold returns the number of threshold factors required.
func (r Role[F]) Threshold() uint8 {
	return r.threshold
}

// ThresholdFactors returns a copy of the threshold list.
func (r Role[F]) ThresholdFactors() []F {
	return slices.Clone(r.thresholdFactors)
}

// OverrideFactors returns a copy of the override list.
func (r Role[F]) OverrideFactors() []F {
	return slices.Clone(r.overrideFactors)
}

// AllFactors returns threshold factors followed by override factors.
func (r Role[F]) AllFactors() []F {
	return slices.Concat(r.thresholdFactors, r.overrideFactors)
}

// IsEmpty reports whether the role lists no factor.
func (r Role[F]) IsEmpty() bool {
	return len(r.thresholdFactors) == 0 && len(r.overrideFactors) == 0
}

// Contains reports whether the factor source is listed in either list.
func (r Role[F]) Contains(id factors.FactorSourceID) bool {
	return slices.ContainsFunc(r.AllFactors(), func(f F) bool { return f.SourceID() == id })
}

// IDs converts the role to factor source ids, keeping list order.
func (r Role[F]) IDs() RoleWithFactorSourceIDs {
	return Role[factors.FactorSourceID]{
		kind:             r.kind,
		threshold:        r.threshold,
		thresholdFactors: sourceIDs(r.thresholdFactors),
		overrideFactors:  sourceIDs(r.overrideFactors),
	}
}

// sourceIDs maps factors to their source ids.
func sourceIDs[F Factor](fs []F) []factors.FactorSourceID {
	if len(fs) == 0 {
		return nil
	}

	ids := make([]factors.FactorSourceID, len(fs))
	for i, f := range fs {
		ids[i] = f.SourceID()
	}
	return ids
}

// MapRole converts every factor of a role, keeping list order.
func MapRole[F, G Factor](r Role[F], fn func(F) (G, error)) (Role[G], error) {
	mapList := func(fs []F) ([]G, error) {
		if fs == nil {
			return nil, nil
		}

		out := make([]G, len(fs))
		for i, f := range fs {
			g, err := fn(f)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	}

	threshold, err := mapList(r.thresholdFactors)
	if err != nil {
		return Role[G]{}, fmt.Errorf("map %s threshold factors:\n%w", r.kind, err)
	}

	override, err := mapList(r.overrideFactors)
	if err != nil {
		return Role[G]{}, fmt.Errorf("map %s override factors:\n%w", r.kind, err)
	}

	return newRole(r.kind, r.threshold, threshold, override)
}

// ResolveRole looks every id up in sources.
// Unknown ids yield factors.ErrFactorSourceDiscrepancy.
func ResolveRole(r RoleWithFactorSourceIDs, sources factors.FactorSources) (RoleWithFactorSources, error) {
	return MapRole(r, func(id factors.FactorSourceID) (factors.FactorSource, error) {
		source, ok := sources.Get(id)
		if !ok {
			return factors.FactorSource{}, fmt.Errorf("%w: %s", factors.ErrFactorSourceDiscrepancy, id)
		}
		return source, nil
	})
}

// roleJSON is the JSON form of a role.
type roleJSON[F Factor] struct {
	Kind             RoleKind `json:"kind"`
	Threshold        uint8    `json:"threshold"`
	ThresholdFactors []F      `json:"thresholdFactors"`
	OverrideFactors  []F      `json:"overrideFactors"`
}

// MarshalJSON implements json.Marshaler.
func (r Role[F]) MarshalJSON() ([]byte, error) {
	return json.Marshal(roleJSON[F]{
		Kind:             r.kind,
		Threshold:        r.threshold,
		ThresholdFactors: orEmpty(r.thresholdFactors),
		OverrideFactors:  orEmpty(r.overrideFactors),
	})
}

// UnmarshalJSON implements json.Unmarshaler, rejecting malformed roles.
func (r *Role[F]) UnmarshalJSON(data []byte) error {
	var raw roleJSON[F]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := newRole(raw.Kind, raw.Threshold, raw.ThresholdFactors, raw.OverrideFactors)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// orEmpty returns an empty slice for nil so JSON carries [] instead of null.
func orEmpty[F any](fs []F) []F {
	if fs == nil {
		return []F{}
	}
	return fs
}
