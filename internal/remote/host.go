package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"WalletCore/internal/factors"
	"WalletCore/internal/keyring"
	"WalletCore/internal/logger"
	"WalletCore/internal/network"
	"WalletCore/internal/signing"
	"WalletCore/internal/wire"
)

// HostObserver is told about every answered request.
type HostObserver interface {
	RequestServed(method string, elapsed time.Duration, err error)
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostObserver reports served requests to obs.
func WithHostObserver(obs HostObserver) HostOption {
	return func(h *Host) {
		h.observer = obs
	}
}

// Host answers sign and derive requests for the factor sources of a keyring.
type Host struct {
	keys     *keyring.Keyring // keys holds the served factor sources
	observer HostObserver     // observer is told about served requests, may be nil
}

// NewHost creates a host for the keyring.
func NewHost(keys *keyring.Keyring, opts ...HostOption) *Host {
	h := &Host{keys: keys}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Serve installs the host as the request handler of the node.
func (h *Host) Serve(node *network.Node) {
	node.OnRequest(h.Handle)
}

// Handle answers one encoded envelope. Request level failures are reported
// in the envelope so the wallet can tell them from transport errors.
func (h *Host) Handle(ctx context.Context, p *network.Peer, data []byte) ([]byte, error) {
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("decode envelope:\n%w", err)
	}

	var body []byte

	start := time.Now()

	switch env.Method {
	case wire.MethodSign:
		body, err = h.sign(ctx, env.Body)
	case wire.MethodDerive:
		body, err = h.derive(ctx, env.Body)
	default:
		err = fmt.Errorf("unknown method %d", env.Method)
	}

	if h.observer != nil {
		h.observer.RequestServed(env.Method.String(), time.Since(start), err)
	}

	if err != nil {
		logger.Warn("request failed", "peer", network.KeyID(p.PublicKey()), "method", env.Method, "error", err)
		return wire.EncodeEnvelope(wire.Envelope{Method: env.Method, Error: err.Error()}), nil
	}

	return wire.EncodeEnvelope(wire.Envelope{Method: env.Method, Body: body}), nil
}

// sign answers a sign request source by source following each source's policy.
func (h *Host) sign(ctx context.Context, data []byte) ([]byte, error) {
	req, err := wire.DecodeSignRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode sign request:\n%w", err)
	}

	resp := wire.SignResponse{Outcomes: make([]wire.FactorOutcome, 0, len(req.Inputs))}

	for _, in := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := h.signInput(factors.FactorSourceKind(req.Kind), in)
		resp.Outcomes = append(resp.Outcomes, out)

		logger.Debug("answered sign input", "source", in.FactorSourceID, "targets", len(in.Targets), "neglect", out.Neglect)
	}

	return wire.EncodeSignResponse(resp), nil
}

// signInput signs every target of one factor source, or neglects the source as a whole.
func (h *Host) signInput(kind factors.FactorSourceKind, in wire.SignInput) wire.FactorOutcome {
	failed := wire.FactorOutcome{FactorSourceID: in.FactorSourceID, Neglect: uint8(signing.Failure)}

	id, err := factors.ParseFactorSourceID(in.FactorSourceID)
	if err != nil || id.Kind() != kind {
		return failed
	}

	policy, err := h.keys.Policy(id)
	if err != nil {
		return failed
	}

	switch policy {
	case keyring.Skip:
		return wire.FactorOutcome{FactorSourceID: in.FactorSourceID, Neglect: uint8(signing.UserExplicitlySkipped)}
	case keyring.Fail:
		return failed
	}

	out := wire.FactorOutcome{FactorSourceID: in.FactorSourceID, Signatures: make([]wire.Signature, 0, len(in.Targets))}

	for _, target := range in.Targets {
		path, err := factors.ParseDerivationPath(target.Path)
		if err != nil {
			return failed
		}

		sig, err := h.keys.SignHash(id, path, target.Hash)
		if err != nil {
			return failed
		}

		out.Signatures = append(out.Signatures, wire.Signature{
			PayloadKind: target.PayloadKind,
			Hash:        target.Hash,
			Path:        target.Path,
			Curve:       uint8(sig.PublicKey.Curve),
			PublicKey:   sig.PublicKey.Bytes,
			Signature:   sig.Signature,
		})
	}

	return out
}

// derive answers a derive request. Any unknown source or path fails the request.
func (h *Host) derive(ctx context.Context, data []byte) ([]byte, error) {
	req, err := wire.DecodeDeriveRequest(data)
	if err != nil {
		return nil, fmt.Errorf("decode derive request:\n%w", err)
	}

	var resp wire.DeriveResponse

	for _, in := range req.Inputs {
		id, err := factors.ParseFactorSourceID(in.FactorSourceID)
		if err != nil {
			return nil, fmt.Errorf("derive input:\n%w", err)
		}

		if id.Kind() != factors.FactorSourceKind(req.Kind) {
			return nil, fmt.Errorf("source %s is not of kind %s", id, factors.FactorSourceKind(req.Kind))
		}

		for _, raw := range in.Paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			path, err := factors.ParseDerivationPath(raw)
			if err != nil {
				return nil, fmt.Errorf("derive input:\n%w", err)
			}

			inst, err := h.keys.PublicKey(id, path)
			if errors.Is(err, keyring.ErrUnknownFactorSource) {
				return nil, fmt.Errorf("source %s is not held here", id)
			}
			if err != nil {
				return nil, fmt.Errorf("derive %s at %s:\n%w", id, raw, err)
			}

			resp.Keys = append(resp.Keys, wire.DerivedKey{
				FactorSourceID: in.FactorSourceID,
				Path:           raw,
				Curve:          uint8(inst.PublicKey.PublicKey.Curve),
				PublicKey:      inst.PublicKey.PublicKey.Bytes,
			})
		}
	}

	return wire.EncodeDeriveResponse(resp), nil
}
