package factors

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"WalletCore/internal/crypto"
)

// Flag marks a factor source with user facing state.
type Flag string

const (
	// FlagMain marks the main device factor source.
	FlagMain Flag = "main"

	// FlagDeletedByUser marks a factor source the user removed but that still controls entities.
	FlagDeletedByUser Flag = "deletedByUser"
)

// Common holds metadata shared by every kind of factor source.
type Common struct {
	SupportedCurves []crypto.Curve `json:"supportedCurves"` // SupportedCurves lists curves the source can derive keys on
	AddedOn         time.Time      `json:"addedOn"`         // AddedOn is when the source was added
	LastUsedOn      time.Time      `json:"lastUsedOn"`      // LastUsedOn is when the source last signed or derived
	Flags           []Flag         `json:"flags,omitempty"` // Flags are user facing markers
}

// Hint helps the user recognise the physical or logical source.
type Hint struct {
	Label string `json:"label"`           // Label is the user given name
	Model string `json:"model,omitempty"` // Model is the device model, if any
}

// FactorSource is a user controlled key source.
type FactorSource struct {
	ID     FactorSourceID `json:"id"`     // ID identifies the source
	Common Common         `json:"common"` // Common is kind independent metadata
	Hint   Hint           `json:"hint"`   // Hint is shown when the user is asked to use the source
}

// NewFactorSource creates a factor source added now.
func NewFactorSource(id FactorSourceID, label string, curves ...crypto.Curve) FactorSource {
	if len(curves) == 0 {
		curves = []crypto.Curve{crypto.Curve25519}
	}

	now := time.Now().UTC()

	return FactorSource{
		ID: id,
		Common: Common{
			SupportedCurves: curves,
			AddedOn:         now,
			LastUsedOn:      now,
		},
		Hint: Hint{Label: label},
	}
}

// Kind returns the kind of the source.
func (f FactorSource) Kind() FactorSourceKind {
	return f.ID.Kind()
}

// SourceID returns the id of the source so sources satisfy Factor.
func (f FactorSource) SourceID() FactorSourceID {
	return f.ID
}

// HasFlag reports whether the flag is set.
func (f FactorSource) HasFlag(flag Flag) bool {
	return slices.Contains(f.Common.Flags, flag)
}

// SupportsCurve reports whether the source can derive keys on the curve.
func (f FactorSource) SupportsCurve(curve crypto.Curve) bool {
	return slices.Contains(f.Common.SupportedCurves, curve)
}

// FactorSources is an ordered set of factor sources keyed by id.
type FactorSources struct {
	list  []FactorSource         // list keeps insertion order
	index map[FactorSourceID]int // index maps id to position in list
}

// NewFactorSources creates a collection, rejecting duplicate ids.
func NewFactorSources(sources ...FactorSource) (FactorSources, error) {
	fs := FactorSources{index: make(map[FactorSourceID]int, len(sources))}

	for _, s := range sources {
		if err := fs.Add(s); err != nil {
			return FactorSources{}, err
		}
	}

	return fs, nil
}

// MustFactorSources is like NewFactorSources but panics on error.
func MustFactorSources(sources ...FactorSource) FactorSources {
	fs, err := NewFactorSources(sources...)
	if err != nil {
		panic(err)
	}
	return fs
}

// Add appends a source. Returns an error if the id is already present.
func (fs *FactorSources) Add(s FactorSource) error {
	if s.ID.IsZero() {
		return fmt.Errorf("factor source has no id")
	}

	if fs.index == nil {
		fs.index = make(map[FactorSourceID]int)
	}

	if _, exists := fs.index[s.ID]; exists {
		return fmt.Errorf("duplicate factor source %s", s.ID)
	}

	fs.index[s.ID] = len(fs.list)
	fs.list = append(fs.list, s)

	return nil
}

// Update replaces the source with the same id. Returns false if absent.
func (fs *FactorSources) Update(s FactorSource) bool {
	idx, ok := fs.index[s.ID]
	if !ok {
		return false
	}

	fs.list[idx] = s

	return true
}

// Get returns the source with the given id.
func (fs FactorSources) Get(id FactorSourceID) (FactorSource, bool) {
	idx, ok := fs.index[id]
	if !ok {
		return FactorSource{}, false
	}
	return fs.list[idx], true
}

// Contains reports whether the id is present.
func (fs FactorSources) Contains(id FactorSourceID) bool {
	_, ok := fs.index[id]
	return ok
}

// Len returns the number of sources.
func (fs FactorSources) Len() int {
	return len(fs.list)
}

// All returns a copy of the sources in insertion order.
func (fs FactorSources) All() []FactorSource {
	return slices.Clone(fs.list)
}

// IDs returns all ids in insertion order.
func (fs FactorSources) IDs() []FactorSourceID {
	ids := make([]FactorSourceID, len(fs.list))
	for i, s := range fs.list {
		ids[i] = s.ID
	}
	return ids
}

// MarshalJSON encodes the sources as a JSON array.
func (fs FactorSources) MarshalJSON() ([]byte, error) {
	if fs.list == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(fs.list)
}

// UnmarshalJSON decodes a JSON array, rejecting duplicates.
func (fs *FactorSources) UnmarshalJSON(data []byte) error {
	var list []FactorSource
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}

	parsed, err := NewFactorSources(list...)
	if err != nil {
		return err
	}

	*fs = parsed

	return nil
}

// KindGroup is the set of factor sources of one kind.
type KindGroup struct {
	Kind    FactorSourceKind // Kind is the shared kind
	Sources []FactorSource   // Sources are ordered as first referenced
}

// GroupByKind resolves ids and groups them by kind in friction order.
// Duplicate ids are collapsed; unknown ids produce an error.
func (fs FactorSources) GroupByKind(ids []FactorSourceID) ([]KindGroup, error) {
	byKind := make(map[FactorSourceKind]*KindGroup)
	seen := make(map[FactorSourceID]bool, len(ids))

	var kinds []FactorSourceKind

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		source, ok := fs.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFactorSourceDiscrepancy, id)
		}

		group, ok := byKind[id.Kind()]
		if !ok {
			group = &KindGroup{Kind: id.Kind()}
			byKind[id.Kind()] = group
			kinds = append(kinds, id.Kind())
		}

		group.Sources = append(group.Sources, source)
	}

	SortByFriction(kinds)

	groups := make([]KindGroup, len(kinds))
	for i, k := range kinds {
		groups[i] = *byKind[k]
	}

	return groups, nil
}
