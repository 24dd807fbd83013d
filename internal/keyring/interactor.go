package keyring

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/signing"
)

var _ derivation.KeyDerivationInteractor = (*Keyring)(nil)

// signer answers sign requests from a keyring.
type signer[S signing.Signable] struct {
	k *Keyring
}

// Signer returns a sign interactor for payloads of type S backed by the keyring.
func Signer[S signing.Signable](k *Keyring) signing.SignInteractor[S] {
	return signer[S]{k: k}
}

// Sign answers every input concurrently. Sources the keyring does not hold, or
// cannot sign with, answer as failed; only context errors are returned.
func (s signer[S]) Sign(ctx context.Context, req signing.SignRequest[S]) (signing.SignResponse, error) {
	resp := signing.NewSignResponse()

	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.k.concurrency)

	for _, input := range req.Inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			outcome := signInput(s.k, input.FactorSourceID, input.Transactions)

			mu.Lock()
			resp.Set(input.FactorSourceID, outcome)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return signing.SignResponse{}, err
	}

	return resp, nil
}

// signInput produces the outcome of one factor source according to its policy.
func signInput[S signing.Signable](k *Keyring, id factors.FactorSourceID, txs []signing.TransactionSignRequestInput[S]) signing.SignWithFactorsOutcome {
	e, err := k.lookup(id)
	if err != nil {
		return signing.Failed()
	}

	switch e.policy {
	case Skip:
		return signing.Skipped()
	case Fail:
		return signing.Failed()
	}

	var sigs []signing.HDSignature

	for _, tx := range txs {
		for _, inst := range tx.OwnedFactorInstances {
			sk, err := secretKey(e, inst.Path())
			if err != nil {
				return signing.Failed()
			}

			sigs = append(sigs, signing.HDSignature{
				Payload:   tx.PayloadID,
				Instance:  inst,
				Signature: sk.Sign(tx.PayloadID.Hash),
			})
		}
	}

	return signing.Signed(sigs...)
}

// Derive answers every entry concurrently. Any failure fails the request.
func (k *Keyring) Derive(ctx context.Context, req derivation.KeyDerivationRequest) (derivation.KeyDerivationResponse, error) {
	resp := derivation.NewKeyDerivationResponse()

	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.concurrency)

	for _, entry := range req.PerFactorSource {
		g.Go(func() error {
			instances := make([]factors.HierarchicalDeterministicFactorInstance, 0, len(entry.Paths))

			for _, p := range entry.Paths {
				if err := ctx.Err(); err != nil {
					return err
				}

				inst, err := k.PublicKey(entry.FactorSourceID, p)
				if err != nil {
					return err
				}

				instances = append(instances, inst)
			}

			mu.Lock()
			resp.Add(entry.FactorSourceID, instances...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return derivation.KeyDerivationResponse{}, err
	}

	return resp, nil
}
