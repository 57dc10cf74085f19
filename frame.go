package wstask

import "fmt"

// MessageType mirrors the websocket opcodes the transports hand over.
type MessageType byte

const (
	TextMessage   MessageType = 1
	BinaryMessage MessageType = 2
	CloseMessage  MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsData() bool {
	return t.Is(TextMessage) || t.Is(BinaryMessage)
}

func (t MessageType) IsControl() bool {
	return t.Is(CloseMessage) || t.Is(PingMessage) || t.Is(PongMessage)
}

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	case CloseMessage:
		return "close"
	case PingMessage:
		return "ping"
	case PongMessage:
		return "pong"
	default:
		return fmt.Sprintf("opcode(%d)", byte(t))
	}
}

// WireFrame is a payload as exchanged with the transport, before any codec validation.
type WireFrame struct {
	Type MessageType
	Data []byte
}

func (w WireFrame) String() string {
	return fmt.Sprintf("WireFrame{type=%s,len=%d}", w.Type, len(w.Data))
}

// FrameKind tags a Frame as text or binary.
type FrameKind byte

const (
	TextFrame FrameKind = iota + 1
	BinaryFrame
)

func (k FrameKind) String() string {
	switch k {
	case TextFrame:
		return "text"
	case BinaryFrame:
		return "binary"
	default:
		return "invalid"
	}
}

func (k FrameKind) messageType() MessageType {
	if k == BinaryFrame {
		return BinaryMessage
	}
	return TextMessage
}

// Frame is an application level message, either Text or Binary. Frames are immutable:
// constructors and accessors copy byte slices so callers cannot alias the content.
type Frame struct {
	kind FrameKind
	data []byte
}

func NewTextFrame(s string) Frame {
	return Frame{kind: TextFrame, data: []byte(s)}
}

func NewBinaryFrame(b []byte) Frame {
	return Frame{kind: BinaryFrame, data: clone(b)}
}

func (f Frame) Kind() FrameKind {
	return f.kind
}

func (f Frame) IsText() bool {
	return f.kind == TextFrame
}

func (f Frame) IsBinary() bool {
	return f.kind == BinaryFrame
}

// Text returns the content as a string. Valid for both kinds.
func (f Frame) Text() string {
	return string(f.data)
}

// Bytes returns a copy of the content.
func (f Frame) Bytes() []byte {
	return clone(f.data)
}

func (f Frame) Len() int {
	return len(f.data)
}

func (f Frame) Wire() WireFrame {
	return WireFrame{Type: f.kind.messageType(), Data: clone(f.data)}
}

func (f Frame) Equal(other Frame) bool {
	return f.kind == other.kind && string(f.data) == string(other.data)
}

func (f Frame) String() string {
	if f.kind == TextFrame {
		return fmt.Sprintf("Frame{kind=text,data=%s}", f.data)
	}
	return fmt.Sprintf("Frame{kind=%s,len=%d}", f.kind, len(f.data))
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
