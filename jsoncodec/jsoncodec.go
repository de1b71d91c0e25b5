// Package jsoncodec derives JSON decoders and encoders from type
// descriptors. A derived Decoder works on generic JSON value trees and
// accumulates every failure with its JSON path; a derived Encoder produces
// the canonical tree for marshalling. Neither touches bytes — Unmarshal and
// Marshal are the byte boundaries.
package jsoncodec

import (
	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"

	"github.com/typefold/typefold/descriptor"
	"github.com/typefold/typefold/engine"
)

// NewDecoderEngine returns an engine that derives Decoders.
func NewDecoderEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(DecoderExtractor{}, opts...)
}

// NewEncoderEngine returns an engine that derives Encoders.
func NewEncoderEngine(opts ...engine.Option) *engine.Engine {
	return engine.New(EncoderExtractor{}, opts...)
}

// DecoderFor extracts the decoder for t from an engine created with
// NewDecoderEngine.
func DecoderFor(e *engine.Engine, t *descriptor.Type) (Decoder, error) {
	a, err := e.Extract(t)
	if err != nil {
		return nil, err
	}
	d, ok := a.(Decoder)
	if !ok {
		return nil, errors.Newf("engine produced %T, not a json decoder", a)
	}
	return d, nil
}

// EncoderFor extracts the encoder for t from an engine created with
// NewEncoderEngine.
func EncoderFor(e *engine.Engine, t *descriptor.Type) (Encoder, error) {
	a, err := e.Extract(t)
	if err != nil {
		return nil, err
	}
	enc, ok := a.(Encoder)
	if !ok {
		return nil, errors.Newf("engine produced %T, not a json encoder", a)
	}
	return enc, nil
}

// Unmarshal parses data and decodes it with d.
func Unmarshal(d Decoder, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}
	return d.Decode(v)
}

// Marshal encodes v with e and serializes the resulting tree.
func Marshal(e Encoder, v any) ([]byte, error) {
	tree, err := e.Encode(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(err, "serializing json")
	}
	return data, nil
}
