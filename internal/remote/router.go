package remote

import (
	"context"
	"fmt"

	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/signing"
)

// KindRouter sends each sign batch to the interactor registered for its kind.
// Batches of kinds without a route fail every input.
type KindRouter[S signing.Signable] struct {
	routes map[factors.FactorSourceKind]signing.SignInteractor[S] // routes maps kinds to interactors
}

// NewKindRouter creates an empty router.
func NewKindRouter[S signing.Signable]() *KindRouter[S] {
	return &KindRouter[S]{routes: make(map[factors.FactorSourceKind]signing.SignInteractor[S])}
}

// Route registers the interactor for the kinds. Later routes replace earlier ones.
func (r *KindRouter[S]) Route(interactor signing.SignInteractor[S], kinds ...factors.FactorSourceKind) *KindRouter[S] {
	for _, k := range kinds {
		r.routes[k] = interactor
	}
	return r
}

// Sign implements signing.SignInteractor.
func (r *KindRouter[S]) Sign(ctx context.Context, req signing.SignRequest[S]) (signing.SignResponse, error) {
	if interactor, ok := r.routes[req.Kind]; ok {
		return interactor.Sign(ctx, req)
	}

	resp := signing.NewSignResponse()
	for _, id := range req.FactorSourceIDs() {
		resp.Set(id, signing.Failed())
	}

	return resp, nil
}

// DeriveRouter sends each derive batch to the interactor registered for its kind.
type DeriveRouter struct {
	routes map[factors.FactorSourceKind]derivation.KeyDerivationInteractor // routes maps kinds to interactors
}

// NewDeriveRouter creates an empty router.
func NewDeriveRouter() *DeriveRouter {
	return &DeriveRouter{routes: make(map[factors.FactorSourceKind]derivation.KeyDerivationInteractor)}
}

// Route registers the interactor for the kinds.
func (r *DeriveRouter) Route(interactor derivation.KeyDerivationInteractor, kinds ...factors.FactorSourceKind) *DeriveRouter {
	for _, k := range kinds {
		r.routes[k] = interactor
	}
	return r
}

// Derive implements derivation.KeyDerivationInteractor.
func (r *DeriveRouter) Derive(ctx context.Context, req derivation.KeyDerivationRequest) (derivation.KeyDerivationResponse, error) {
	interactor, ok := r.routes[req.Kind]
	if !ok {
		return derivation.KeyDerivationResponse{}, fmt.Errorf("no interactor for %s", req.Kind)
	}

	return interactor.Derive(ctx, req)
}
