package wstask

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format serializes application values into frames and back.
// Text formats produce text frames, binary formats produce binary frames.
type Format interface {
	Name() string
	Kind() FrameKind
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	JSON Format = jsonFormat{}
	YAML Format = yamlFormat{}
	CBOR Format = cborFormat{}
)

type jsonFormat struct{}

func (jsonFormat) Name() string                       { return "json" }
func (jsonFormat) Kind() FrameKind                    { return TextFrame }
func (jsonFormat) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonFormat) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type yamlFormat struct{}

func (yamlFormat) Name() string                       { return "yaml" }
func (yamlFormat) Kind() FrameKind                    { return TextFrame }
func (yamlFormat) Marshal(v any) ([]byte, error)      { return yaml.Marshal(v) }
func (yamlFormat) Unmarshal(data []byte, v any) error { return yaml.Unmarshal(data, v) }

type cborFormat struct{}

func (cborFormat) Name() string                       { return "cbor" }
func (cborFormat) Kind() FrameKind                    { return BinaryFrame }
func (cborFormat) Marshal(v any) ([]byte, error)      { return cbor.Marshal(v) }
func (cborFormat) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// EncodeValue marshals v with the format and wraps it in a frame of the format's kind.
func EncodeValue(f Format, v any) (Frame, error) {
	data, err := f.Marshal(v)
	if err != nil {
		return Frame{}, errors.Wrapf(err, "cannot encode %s value", f.Name())
	}

	if f.Kind() == BinaryFrame {
		return NewBinaryFrame(data), nil
	}
	return NewCodec(FrameModeText).Encode(data)
}

// DecodeValue unmarshals a frame into v. Text formats reject binary frames and
// binary formats reject text frames, like the codec does for a dedicated mode.
func DecodeValue(f Format, frame Frame, v any) error {
	if frame.Kind() != f.Kind() {
		if f.Kind() == BinaryFrame {
			return ErrReceivedTextForBinary
		}
		return ErrReceivedBinaryForText
	}

	if err := f.Unmarshal(frame.data, v); err != nil {
		return errors.Wrapf(err, "cannot decode %s value", f.Name())
	}
	return nil
}
