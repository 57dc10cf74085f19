package wstask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageType_Classes(t *testing.T) {
	for _, mt := range []MessageType{TextMessage, BinaryMessage} {
		assert.True(t, mt.IsData(), mt.String())
		assert.False(t, mt.IsControl(), mt.String())
	}
	for _, mt := range []MessageType{CloseMessage, PingMessage, PongMessage} {
		assert.False(t, mt.IsData(), mt.String())
		assert.True(t, mt.IsControl(), mt.String())
	}

	unknown := MessageType(3)
	assert.False(t, unknown.IsData())
	assert.False(t, unknown.IsControl())
	assert.Equal(t, "opcode(3)", unknown.String())
}

func TestFrame_Equal(t *testing.T) {
	assert.True(t, NewTextFrame("a").Equal(NewTextFrame("a")))
	assert.False(t, NewTextFrame("a").Equal(NewTextFrame("b")))
	assert.False(t, NewTextFrame("a").Equal(NewBinaryFrame([]byte("a"))))
	assert.True(t, NewBinaryFrame([]byte{1, 2}).Equal(NewBinaryFrame([]byte{1, 2})))
}
