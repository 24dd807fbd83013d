package wire

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"WalletCore/internal/crypto"
	"WalletCore/internal/wire/fb"
)

// decodeGuard turns FlatBuffers panics on malformed input into errors.
func decodeGuard(what string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed %s", what)
	}
}

// checkRoot rejects buffers too short to hold a root offset.
func checkRoot(data []byte, what string) error {
	if len(data) < 8 {
		return fmt.Errorf("%s too short: %d bytes", what, len(data))
	}
	return nil
}

// readHash copies a 32-byte vector into a hash.
func readHash(b []byte) (crypto.Hash, error) {
	var h crypto.Hash
	if len(b) != crypto.HashSize {
		return h, fmt.Errorf("hash has %d bytes, want %d", len(b), crypto.HashSize)
	}
	copy(h[:], b)
	return h, nil
}

// cloneBytes copies a vector out of the buffer.
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// tableVector writes a vector of table offsets.
func tableVector(builder *flatbuffers.Builder, offsets []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	builder.StartVector(4, len(offsets), 4)
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	return builder.EndVector(len(offsets))
}

// EncodeEnvelope encodes an envelope.
func EncodeEnvelope(env Envelope) []byte {
	builder := flatbuffers.NewBuilder(64 + len(env.Body))

	bodyOffset := builder.CreateByteVector(env.Body)
	errorOffset := builder.CreateString(env.Error)

	fb.EnvelopeStart(builder)
	fb.EnvelopeAddMethod(builder, byte(env.Method))
	fb.EnvelopeAddBody(builder, bodyOffset)
	fb.EnvelopeAddError(builder, errorOffset)
	builder.Finish(fb.EnvelopeEnd(builder))

	return builder.FinishedBytes()
}

// DecodeEnvelope decodes an envelope.
func DecodeEnvelope(data []byte) (env Envelope, err error) {
	defer decodeGuard("envelope", &err)

	if err := checkRoot(data, "envelope"); err != nil {
		return Envelope{}, err
	}

	t := fb.GetRootAsEnvelope(data, 0)

	return Envelope{
		Method: Method(t.Method()),
		Body:   cloneBytes(t.BodyBytes()),
		Error:  string(t.Error()),
	}, nil
}

// EncodeSignRequest encodes a sign request.
func EncodeSignRequest(req SignRequest) []byte {
	builder := flatbuffers.NewBuilder(256)

	inputs := make([]flatbuffers.UOffsetT, len(req.Inputs))
	for i, in := range req.Inputs {
		targets := make([]flatbuffers.UOffsetT, len(in.Targets))
		for j, target := range in.Targets {
			hashOffset := builder.CreateByteVector(target.Hash[:])
			pathOffset := builder.CreateString(target.Path)

			fb.SignTargetStart(builder)
			fb.SignTargetAddPayloadKind(builder, target.PayloadKind)
			fb.SignTargetAddHash(builder, hashOffset)
			fb.SignTargetAddPath(builder, pathOffset)
			targets[j] = fb.SignTargetEnd(builder)
		}

		targetsVector := tableVector(builder, targets)
		idOffset := builder.CreateString(in.FactorSourceID)

		fb.SignInputStart(builder)
		fb.SignInputAddFactorSourceId(builder, idOffset)
		fb.SignInputAddTargets(builder, targetsVector)
		inputs[i] = fb.SignInputEnd(builder)
	}

	inputsVector := tableVector(builder, inputs)

	fb.SignRequestStart(builder)
	fb.SignRequestAddKind(builder, req.Kind)
	fb.SignRequestAddInputs(builder, inputsVector)
	builder.Finish(fb.SignRequestEnd(builder))

	return builder.FinishedBytes()
}

// DecodeSignRequest decodes a sign request.
func DecodeSignRequest(data []byte) (req SignRequest, err error) {
	defer decodeGuard("sign request", &err)

	if err := checkRoot(data, "sign request"); err != nil {
		return SignRequest{}, err
	}

	t := fb.GetRootAsSignRequest(data, 0)
	req.Kind = t.Kind()
	req.Inputs = make([]SignInput, t.InputsLength())

	var in fb.SignInput
	var target fb.SignTarget

	for i := range req.Inputs {
		t.Inputs(&in, i)

		targets := make([]SignTarget, in.TargetsLength())
		for j := range targets {
			in.Targets(&target, j)

			hash, err := readHash(target.HashBytes())
			if err != nil {
				return SignRequest{}, fmt.Errorf("input %d target %d:\n%w", i, j, err)
			}

			targets[j] = SignTarget{
				PayloadKind: target.PayloadKind(),
				Hash:        hash,
				Path:        string(target.Path()),
			}
		}

		req.Inputs[i] = SignInput{
			FactorSourceID: string(in.FactorSourceId()),
			Targets:        targets,
		}
	}

	return req, nil
}

// EncodeSignResponse encodes a sign response.
func EncodeSignResponse(resp SignResponse) []byte {
	builder := flatbuffers.NewBuilder(512)

	outcomes := make([]flatbuffers.UOffsetT, len(resp.Outcomes))
	for i, out := range resp.Outcomes {
		sigs := make([]flatbuffers.UOffsetT, len(out.Signatures))
		for j, sig := range out.Signatures {
			hashOffset := builder.CreateByteVector(sig.Hash[:])
			pathOffset := builder.CreateString(sig.Path)
			keyOffset := builder.CreateByteVector(sig.PublicKey)
			sigOffset := builder.CreateByteVector(sig.Signature)

			fb.SignatureStart(builder)
			fb.SignatureAddPayloadKind(builder, sig.PayloadKind)
			fb.SignatureAddHash(builder, hashOffset)
			fb.SignatureAddPath(builder, pathOffset)
			fb.SignatureAddCurve(builder, sig.Curve)
			fb.SignatureAddPublicKey(builder, keyOffset)
			fb.SignatureAddSignature(builder, sigOffset)
			sigs[j] = fb.SignatureEnd(builder)
		}

		sigsVector := tableVector(builder, sigs)
		idOffset := builder.CreateString(out.FactorSourceID)

		fb.FactorOutcomeStart(builder)
		fb.FactorOutcomeAddFactorSourceId(builder, idOffset)
		fb.FactorOutcomeAddNeglect(builder, out.Neglect)
		fb.FactorOutcomeAddSignatures(builder, sigsVector)
		outcomes[i] = fb.FactorOutcomeEnd(builder)
	}

	outcomesVector := tableVector(builder, outcomes)

	fb.SignResponseStart(builder)
	fb.SignResponseAddOutcomes(builder, outcomesVector)
	builder.Finish(fb.SignResponseEnd(builder))

	return builder.FinishedBytes()
}

// DecodeSignResponse decodes a sign response.
func DecodeSignResponse(data []byte) (resp SignResponse, err error) {
	defer decodeGuard("sign response", &err)

	if err := checkRoot(data, "sign response"); err != nil {
		return SignResponse{}, err
	}

	t := fb.GetRootAsSignResponse(data, 0)
	resp.Outcomes = make([]FactorOutcome, t.OutcomesLength())

	var out fb.FactorOutcome
	var sig fb.Signature

	for i := range resp.Outcomes {
		t.Outcomes(&out, i)

		sigs := make([]Signature, out.SignaturesLength())
		for j := range sigs {
			out.Signatures(&sig, j)

			hash, err := readHash(sig.HashBytes())
			if err != nil {
				return SignResponse{}, fmt.Errorf("outcome %d signature %d:\n%w", i, j, err)
			}

			sigs[j] = Signature{
				PayloadKind: sig.PayloadKind(),
				Hash:        hash,
				Path:        string(sig.Path()),
				Curve:       sig.Curve(),
				PublicKey:   cloneBytes(sig.PublicKeyBytes()),
				Signature:   cloneBytes(sig.SignatureBytes()),
			}
		}

		resp.Outcomes[i] = FactorOutcome{
			FactorSourceID: string(out.FactorSourceId()),
			Neglect:        out.Neglect(),
			Signatures:     sigs,
		}
	}

	return resp, nil
}

// EncodeDeriveRequest encodes a derive request.
func EncodeDeriveRequest(req DeriveRequest) []byte {
	builder := flatbuffers.NewBuilder(256)

	inputs := make([]flatbuffers.UOffsetT, len(req.Inputs))
	for i, in := range req.Inputs {
		paths := make([]flatbuffers.UOffsetT, len(in.Paths))
		for j, p := range in.Paths {
			paths[j] = builder.CreateString(p)
		}

		pathsVector := tableVector(builder, paths)
		idOffset := builder.CreateString(in.FactorSourceID)

		fb.DeriveInputStart(builder)
		fb.DeriveInputAddFactorSourceId(builder, idOffset)
		fb.DeriveInputAddPaths(builder, pathsVector)
		inputs[i] = fb.DeriveInputEnd(builder)
	}

	inputsVector := tableVector(builder, inputs)

	fb.DeriveRequestStart(builder)
	fb.DeriveRequestAddKind(builder, req.Kind)
	fb.DeriveRequestAddInputs(builder, inputsVector)
	builder.Finish(fb.DeriveRequestEnd(builder))

	return builder.FinishedBytes()
}

// DecodeDeriveRequest decodes a derive request.
func DecodeDeriveRequest(data []byte) (req DeriveRequest, err error) {
	defer decodeGuard("derive request", &err)

	if err := checkRoot(data, "derive request"); err != nil {
		return DeriveRequest{}, err
	}

	t := fb.GetRootAsDeriveRequest(data, 0)
	req.Kind = t.Kind()
	req.Inputs = make([]DeriveInput, t.InputsLength())

	var in fb.DeriveInput
	for i := range req.Inputs {
		t.Inputs(&in, i)

		paths := make([]string, in.PathsLength())
		for j := range paths {
			paths[j] = string(in.Paths(j))
		}

		req.Inputs[i] = DeriveInput{
			FactorSourceID: string(in.FactorSourceId()),
			Paths:          paths,
		}
	}

	return req, nil
}

// EncodeDeriveResponse encodes a derive response.
func EncodeDeriveResponse(resp DeriveResponse) []byte {
	builder := flatbuffers.NewBuilder(512)

	keys := make([]flatbuffers.UOffsetT, len(resp.Keys))
	for i, k := range resp.Keys {
		idOffset := builder.CreateString(k.FactorSourceID)
		pathOffset := builder.CreateString(k.Path)
		keyOffset := builder.CreateByteVector(k.PublicKey)

		fb.DerivedKeyStart(builder)
		fb.DerivedKeyAddFactorSourceId(builder, idOffset)
		fb.DerivedKeyAddPath(builder, pathOffset)
		fb.DerivedKeyAddCurve(builder, k.Curve)
		fb.DerivedKeyAddPublicKey(builder, keyOffset)
		keys[i] = fb.DerivedKeyEnd(builder)
	}

	keysVector := tableVector(builder, keys)

	fb.DeriveResponseStart(builder)
	fb.DeriveResponseAddKeys(builder, keysVector)
	builder.Finish(fb.DeriveResponseEnd(builder))

	return builder.FinishedBytes()
}

// DecodeDeriveResponse decodes a derive response.
func DecodeDeriveResponse(data []byte) (resp DeriveResponse, err error) {
	defer decodeGuard("derive response", &err)

	if err := checkRoot(data, "derive response"); err != nil {
		return DeriveResponse{}, err
	}

	t := fb.GetRootAsDeriveResponse(data, 0)
	resp.Keys = make([]DerivedKey, t.KeysLength())

	var k fb.DerivedKey
	for i := range resp.Keys {
		t.Keys(&k, i)

		resp.Keys[i] = DerivedKey{
			FactorSourceID: string(k.FactorSourceId()),
			Path:           string(k.Path()),
			Curve:          k.Curve(),
			PublicKey:      cloneBytes(k.PublicKeyBytes()),
		}
	}

	return resp, nil
}
