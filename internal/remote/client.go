// Package remote lets a wallet use factor sources held by another process. A Host serves
// a keyring over the network transport; a Client turns it back into sign and derive
// interactors, and a KindRouter sends each factor source kind to the right one.
package remote

import (
	"context"
	"fmt"

	"WalletCore/internal/crypto"
	"WalletCore/internal/derivation"
	"WalletCore/internal/factors"
	"WalletCore/internal/network"
	"WalletCore/internal/signing"
	"WalletCore/internal/wire"
)

var _ derivation.KeyDerivationInteractor = (*Client)(nil)

// Client talks to one signer host.
type Client struct {
	peer *network.Peer // peer is the connected host
}

// NewClient wraps a connected peer.
func NewClient(peer *network.Peer) *Client {
	return &Client{peer: peer}
}

// call sends one envelope and returns the body of the answer.
func (c *Client) call(ctx context.Context, method wire.Method, body []byte) ([]byte, error) {
	data, err := c.peer.Request(ctx, wire.EncodeEnvelope(wire.Envelope{Method: method, Body: body}))
	if err != nil {
		return nil, fmt.Errorf("request:\n%w", err)
	}

	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("decode envelope:\n%w", err)
	}

	if env.Error != "" {
		return nil, fmt.Errorf("host: %s", env.Error)
	}

	if env.Method != method {
		return nil, fmt.Errorf("host answered method %d to %d", env.Method, method)
	}

	return env.Body, nil
}

// slot is one signing target of a request.
type slot struct {
	source  factors.FactorSourceID
	payload signing.PayloadID
	path    string
}

// remoteSigner is a sign interactor for payloads of type S.
type remoteSigner[S signing.Signable] struct {
	c *Client
}

// SignInteractor returns a sign interactor backed by the host.
func SignInteractor[S signing.Signable](c *Client) signing.SignInteractor[S] {
	return remoteSigner[S]{c: c}
}

// Sign sends the batch as payload hashes and paths, then maps the answer back onto
// the requested factor instances. The collector verifies what comes back.
func (s remoteSigner[S]) Sign(ctx context.Context, req signing.SignRequest[S]) (signing.SignResponse, error) {
	wreq := wire.SignRequest{Kind: uint8(req.Kind), Inputs: make([]wire.SignInput, 0, len(req.Inputs))}
	slots := make(map[slot]factors.HierarchicalDeterministicFactorInstance)
	asked := make(map[string]factors.FactorSourceID, len(req.Inputs))

	for _, input := range req.Inputs {
		in := wire.SignInput{FactorSourceID: input.FactorSourceID.String()}

		for _, tx := range input.Transactions {
			for _, inst := range tx.OwnedFactorInstances {
				path := inst.Path().String()
				slots[slot{input.FactorSourceID, tx.PayloadID, path}] = inst

				in.Targets = append(in.Targets, wire.SignTarget{
					PayloadKind: uint8(tx.PayloadID.Kind),
					Hash:        tx.PayloadID.Hash,
					Path:        path,
				})
			}
		}

		asked[in.FactorSourceID] = input.FactorSourceID
		wreq.Inputs = append(wreq.Inputs, in)
	}

	body, err := s.c.call(ctx, wire.MethodSign, wire.EncodeSignRequest(wreq))
	if err != nil {
		return signing.SignResponse{}, fmt.Errorf("sign %s batch:\n%w", req.Kind, err)
	}

	wresp, err := wire.DecodeSignResponse(body)
	if err != nil {
		return signing.SignResponse{}, fmt.Errorf("decode sign response:\n%w", err)
	}

	resp := signing.NewSignResponse()

	for _, out := range wresp.Outcomes {
		id, ok := asked[out.FactorSourceID]
		if !ok {
			continue
		}

		if out.Neglect != 0 {
			resp.Set(id, signing.Neglected(signing.NeglectFactorReason(out.Neglect)))
			continue
		}

		sigs := make([]signing.HDSignature, 0, len(out.Signatures))
		for _, ws := range out.Signatures {
			payload := signing.PayloadID{Kind: signing.PayloadKind(ws.PayloadKind), Hash: ws.Hash}

			inst, ok := slots[slot{id, payload, ws.Path}]
			if !ok {
				continue // Unrequested; the answer is then incomplete
			}

			sigs = append(sigs, signing.HDSignature{
				Payload:  payload,
				Instance: inst,
				Signature: crypto.SignatureWithPublicKey{
					PublicKey: crypto.PublicKey{Curve: crypto.Curve(ws.Curve), Bytes: ws.PublicKey},
					Signature: ws.Signature,
				},
			})
		}

		resp.Set(id, signing.Signed(sigs...))
	}

	return resp, nil
}

// Derive asks the host for public keys. Any malformed key fails the request.
func (c *Client) Derive(ctx context.Context, req derivation.KeyDerivationRequest) (derivation.KeyDerivationResponse, error) {
	wreq := wire.DeriveRequest{Kind: uint8(req.Kind), Inputs: make([]wire.DeriveInput, 0, len(req.PerFactorSource))}

	for _, entry := range req.PerFactorSource {
		in := wire.DeriveInput{FactorSourceID: entry.FactorSourceID.String()}
		for _, p := range entry.Paths {
			in.Paths = append(in.Paths, p.String())
		}
		wreq.Inputs = append(wreq.Inputs, in)
	}

	body, err := c.call(ctx, wire.MethodDerive, wire.EncodeDeriveRequest(wreq))
	if err != nil {
		return derivation.KeyDerivationResponse{}, fmt.Errorf("derive %s batch:\n%w", req.Kind, err)
	}

	wresp, err := wire.DecodeDeriveResponse(body)
	if err != nil {
		return derivation.KeyDerivationResponse{}, fmt.Errorf("decode derive response:\n%w", err)
	}

	resp := derivation.NewKeyDerivationResponse()

	for _, k := range wresp.Keys {
		inst, err := derivedInstance(k)
		if err != nil {
			return derivation.KeyDerivationResponse{}, err
		}
		resp.Add(inst.FactorSourceID, inst)
	}

	return resp, nil
}

// derivedInstance rebuilds a factor instance from its wire form.
func derivedInstance(k wire.DerivedKey) (factors.HierarchicalDeterministicFactorInstance, error) {
	id, err := factors.ParseFactorSourceID(k.FactorSourceID)
	if err != nil {
		return factors.HierarchicalDeterministicFactorInstance{}, fmt.Errorf("derived key source:\n%w", err)
	}

	path, err := factors.ParseDerivationPath(k.Path)
	if err != nil {
		return factors.HierarchicalDeterministicFactorInstance{}, fmt.Errorf("derived key path:\n%w", err)
	}

	key, err := crypto.NewPublicKey(crypto.Curve(k.Curve), k.PublicKey)
	if err != nil {
		return factors.HierarchicalDeterministicFactorInstance{}, fmt.Errorf("derived key %s:\n%w", k.Path, err)
	}

	return factors.NewHDFactorInstance(id, key, path)
}
