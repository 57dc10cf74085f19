package wstask

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		codec := NewCodec(FrameModeText)

		frame, err := codec.Encode([]byte("héllo"))
		require.NoError(t, err)
		assert.True(t, frame.IsText())

		decoded, err := codec.Decode(frame.Wire())
		require.NoError(t, err)
		assert.Equal(t, "héllo", decoded.Text())
		assert.True(t, decoded.Equal(frame))
	})

	t.Run("binary", func(t *testing.T) {
		codec := NewCodec(FrameModeBinary)
		payload := []byte{0x00, 0xff, 0x10, 0x80}

		frame, err := codec.Encode(payload)
		require.NoError(t, err)
		assert.True(t, frame.IsBinary())

		decoded, err := codec.Decode(frame.Wire())
		require.NoError(t, err)
		assert.Equal(t, payload, decoded.Bytes())
	})

	t.Run("any mode keeps both kinds", func(t *testing.T) {
		codec := NewCodec(FrameModeAny)

		text, err := codec.Decode(WireFrame{Type: TextMessage, Data: []byte("a")})
		require.NoError(t, err)
		assert.Equal(t, TextFrame, text.Kind())

		bin, err := codec.Decode(WireFrame{Type: BinaryMessage, Data: []byte{1}})
		require.NoError(t, err)
		assert.Equal(t, BinaryFrame, bin.Kind())
	})
}

func TestCodec_EncodeDoesNotSniff(t *testing.T) {
	frame, err := NewCodec(FrameModeBinary).Encode([]byte("plain ascii"))
	require.NoError(t, err)
	assert.Equal(t, BinaryFrame, frame.Kind())

	frame, err = NewCodec(FrameModeAny).Encode([]byte("plain ascii"))
	require.NoError(t, err)
	assert.Equal(t, TextFrame, frame.Kind())
}

func TestCodec_EncodeInvalidUTF8AsText(t *testing.T) {
	_, err := NewCodec(FrameModeText).Encode([]byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrCannotEncodeBinaryAsText)

	_, err = NewCodec(FrameModeAny).EncodeText(string([]byte{0xc3}))
	assert.ErrorIs(t, err, ErrCannotEncodeBinaryAsText)
}

func TestCodec_DecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		mode  FrameMode
		wire  WireFrame
		cause error
	}{
		{"binary for text", FrameModeText, WireFrame{Type: BinaryMessage, Data: []byte{1}}, ErrReceivedBinaryForText},
		{"text for binary", FrameModeBinary, WireFrame{Type: TextMessage, Data: []byte("x")}, ErrReceivedTextForBinary},
		{"invalid utf-8", FrameModeAny, WireFrame{Type: TextMessage, Data: []byte{0xff}}, nil},
		{"control opcode", FrameModeAny, WireFrame{Type: PingMessage}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCodec(tt.mode).Decode(tt.wire)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedFrame))
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestFrame_Immutable(t *testing.T) {
	payload := []byte{1, 2, 3}
	frame := NewBinaryFrame(payload)
	payload[0] = 9

	got := frame.Bytes()
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, frame.Bytes())
}

func TestParseFrameMode(t *testing.T) {
	for in, want := range map[string]FrameMode{"": FrameModeAny, "any": FrameModeAny, "text": FrameModeText, "binary": FrameModeBinary} {
		got, err := ParseFrameMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFrameMode("json")
	assert.Error(t, err)
}
