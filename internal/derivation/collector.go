package derivation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"WalletCore/internal/factors"
)

var (
	// ErrAlreadyCollected is returned when Collect is called twice on the same collector.
	ErrAlreadyCollected = errors.New("keys already collected")

	// ErrUnexpectedKeys is returned when an interactor answers with other keys than requested.
	ErrUnexpectedKeys = errors.New("unexpected derived keys")
)

// Option configures a KeysCollector.
type Option func(*KeysCollector)

// WithObserver sets the observer of the run.
func WithObserver(obs Observer) Option {
	return func(c *KeysCollector) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// KeysCollector asks factor sources, kind by kind, to derive keys at the requested paths.
type KeysCollector struct {
	groups     []factors.KindGroup                                 // groups are the asked sources in friction order
	paths      map[factors.FactorSourceID][]factors.DerivationPath // paths are the requested paths per source
	interactor KeyDerivationInteractor                             // interactor derives the keys
	purpose    Purpose                                             // purpose is passed to the interactor
	observer   Observer                                            // observer receives progress events
	collected  atomic.Bool                                         // collected is set by the first Collect
}

// NewKeysCollector prepares a run. Fails with an error wrapping factors.ErrFactorSourceDiscrepancy
// when a requested factor source is missing from sources.
func NewKeysCollector(
	sources factors.FactorSources,
	paths map[factors.FactorSourceID][]factors.DerivationPath,
	interactor KeyDerivationInteractor,
	purpose Purpose,
	opts ...Option,
) (*KeysCollector, error) {
	if interactor == nil {
		return nil, fmt.Errorf("key derivation interactor is required")
	}

	ids := make([]factors.FactorSourceID, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareIDs)

	groups, err := sources.GroupByKind(ids)
	if err != nil {
		return nil, fmt.Errorf("group factor sources:\n%w", err)
	}

	normalized := make(map[factors.FactorSourceID][]factors.DerivationPath, len(paths))

	for _, group := range groups {
		for _, source := range group.Sources {
			list, err := normalizePaths(source, paths[source.ID])
			if err != nil {
				return nil, err
			}
			normalized[source.ID] = list
		}
	}

	c := &KeysCollector{
		groups:     groups,
		paths:      normalized,
		interactor: interactor,
		purpose:    purpose,
		observer:   NopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// normalizePaths validates the paths of a source and drops repeats.
func normalizePaths(source factors.FactorSource, paths []factors.DerivationPath) ([]factors.DerivationPath, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no derivation paths requested for %s", source.ID)
	}

	var out []factors.DerivationPath
	for _, p := range paths {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("path %s for %s:\n%w", p, source.ID, err)
		}

		if !source.SupportsCurve(p.Curve()) {
			return nil, fmt.Errorf("factor source %s does not support curve %s", source.ID, p.Curve())
		}

		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}

	return out, nil
}

// Kinds returns the factor source kinds the run asks, in order.
func (c *KeysCollector) Kinds() []factors.FactorSourceKind {
	kinds := make([]factors.FactorSourceKind, len(c.groups))
	for i, g := range c.groups {
		kinds[i] = g.Kind
	}
	return kinds
}

// Collect asks each kind in friction order. Every requested path must be derived:
// any interactor error or mismatching answer aborts the run.
func (c *KeysCollector) Collect(ctx context.Context) (KeyDerivationResponse, error) {
	if !c.collected.CompareAndSwap(false, true) {
		return KeyDerivationResponse{}, ErrAlreadyCollected
	}

	start := time.Now()
	out := NewKeyDerivationResponse()

	for _, group := range c.groups {
		if err := ctx.Err(); err != nil {
			return KeyDerivationResponse{}, err
		}

		keys, err := c.collectKind(ctx, group)
		c.observer.KindFinished(group.Kind, keys.Len(), err)

		if err != nil {
			return KeyDerivationResponse{}, fmt.Errorf("derive keys with %s:\n%w", group.Kind, err)
		}

		for id, list := range keys.FactorInstances {
			out.Add(id, list...)
		}
	}

	c.observer.Finished(c.purpose, out.Len(), time.Since(start))

	return out, nil
}

// collectKind asks every source of one kind and checks the answer.
func (c *KeysCollector) collectKind(ctx context.Context, group factors.KindGroup) (KeyDerivationResponse, error) {
	req := KeyDerivationRequest{Kind: group.Kind, Purpose: c.purpose}
	for _, source := range group.Sources {
		req.PerFactorSource = append(req.PerFactorSource, KeyDerivationRequestPerFactorSource{
			FactorSourceID: source.ID,
			Paths:          slices.Clone(c.paths[source.ID]),
		})
	}

	c.observer.KindStarted(group.Kind, len(req.PerFactorSource))

	resp, err := c.interactor.Derive(ctx, req)
	if err != nil {
		return KeyDerivationResponse{}, err
	}

	checked := NewKeyDerivationResponse()

	for _, entry := range req.PerFactorSource {
		instances, err := checkInstances(entry, resp.FactorInstances[entry.FactorSourceID])
		if err != nil {
			return KeyDerivationResponse{}, err
		}
		checked.Add(entry.FactorSourceID, instances...)
	}

	for id := range resp.FactorInstances {
		if !slices.ContainsFunc(req.PerFactorSource, func(e KeyDerivationRequestPerFactorSource) bool { return e.FactorSourceID == id }) {
			return KeyDerivationResponse{}, fmt.Errorf("%w: keys from unrequested factor source %s", ErrUnexpectedKeys, id)
		}
	}

	return checked, nil
}

// checkInstances requires exactly one well formed key per requested path, returned in request order.
func checkInstances(entry KeyDerivationRequestPerFactorSource, instances []factors.HierarchicalDeterministicFactorInstance) ([]factors.HierarchicalDeterministicFactorInstance, error) {
	byPath := make(map[factors.DerivationPath]factors.HierarchicalDeterministicFactorInstance, len(instances))

	for _, inst := range instances {
		path := inst.Path()

		if inst.FactorSourceID != entry.FactorSourceID {
			return nil, fmt.Errorf("%w: key at %s claims factor source %s, want %s", ErrUnexpectedKeys, path, inst.FactorSourceID, entry.FactorSourceID)
		}

		if !slices.Contains(entry.Paths, path) {
			return nil, fmt.Errorf("%w: unrequested path %s from %s", ErrUnexpectedKeys, path, entry.FactorSourceID)
		}

		if _, dup := byPath[path]; dup {
			return nil, fmt.Errorf("%w: path %s derived twice by %s", ErrUnexpectedKeys, path, entry.FactorSourceID)
		}

		checkedInst, err := factors.NewHDFactorInstance(inst.FactorSourceID, inst.PublicKey.PublicKey, path)
		if err != nil {
			return nil, fmt.Errorf("%w: key at %s from %s:\n%w", ErrUnexpectedKeys, path, entry.FactorSourceID, err)
		}

		byPath[path] = checkedInst
	}

	out := make([]factors.HierarchicalDeterministicFactorInstance, 0, len(entry.Paths))
	for _, p := range entry.Paths {
		inst, ok := byPath[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s did not derive %s", ErrUnexpectedKeys, entry.FactorSourceID, p)
		}
		out = append(out, inst)
	}

	return out, nil
}
