package wstask

import (
	"unicode/utf8"

	"github.com/pkg/errors"
)

// FrameMode selects which frame kinds a connection produces and accepts.
type FrameMode int

const (
	// FrameModeAny accepts both kinds inbound and encodes outbound payloads as text.
	FrameModeAny FrameMode = iota
	// FrameModeText only accepts text frames.
	FrameModeText
	// FrameModeBinary only accepts binary frames.
	FrameModeBinary
)

func (m FrameMode) String() string {
	switch m {
	case FrameModeAny:
		return "any"
	case FrameModeText:
		return "text"
	case FrameModeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

func (m FrameMode) valid() bool {
	return m >= FrameModeAny && m <= FrameModeBinary
}

// ParseFrameMode maps "any", "text" or "binary" to a FrameMode.
func ParseFrameMode(s string) (FrameMode, error) {
	switch s {
	case "", "any":
		return FrameModeAny, nil
	case "text":
		return FrameModeText, nil
	case "binary":
		return FrameModeBinary, nil
	}
	return FrameModeAny, errors.Errorf("unknown frame mode %q", s)
}

// Codec converts application payloads to frames and validates inbound wire frames.
// It holds no state besides its mode.
type Codec struct {
	mode FrameMode
}

func NewCodec(mode FrameMode) Codec {
	return Codec{mode: mode}
}

func (c Codec) Mode() FrameMode {
	return c.mode
}

// Encode builds a frame of the kind dictated by the mode. Payloads are never sniffed.
func (c Codec) Encode(payload []byte) (Frame, error) {
	if c.mode == FrameModeBinary {
		return c.EncodeBinary(payload), nil
	}
	if !utf8.Valid(payload) {
		return Frame{}, ErrCannotEncodeBinaryAsText
	}
	return NewTextFrame(string(payload)), nil
}

func (c Codec) EncodeText(s string) (Frame, error) {
	if !utf8.ValidString(s) {
		return Frame{}, ErrCannotEncodeBinaryAsText
	}
	return NewTextFrame(s), nil
}

func (c Codec) EncodeBinary(b []byte) Frame {
	return NewBinaryFrame(b)
}

// Decode turns a wire frame into a Frame. It fails with ErrMalformedFrame when the frame
// kind is not accepted by the mode, when text is not valid UTF-8, or for control opcodes.
func (c Codec) Decode(w WireFrame) (Frame, error) {
	if !w.Type.IsData() {
		return Frame{}, malformed(errors.Errorf("unexpected %s frame", w.Type))
	}

	if w.Type.Is(BinaryMessage) {
		if c.mode == FrameModeText {
			return Frame{}, malformed(ErrReceivedBinaryForText)
		}
		return NewBinaryFrame(w.Data), nil
	}

	if c.mode == FrameModeBinary {
		return Frame{}, malformed(ErrReceivedTextForBinary)
	}
	if !utf8.Valid(w.Data) {
		return Frame{}, malformed(errors.New("text frame is not valid utf-8"))
	}
	return NewTextFrame(string(w.Data)), nil
}
