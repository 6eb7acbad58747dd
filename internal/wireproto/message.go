// Package wireproto defines the framed binary messages exchanged between a
// master and a remote over the authenticated shell transport, and the codec
// that frames/parses them on a byte stream.
//
// Framing is length-prefixed binary, in the style of the fixed-field
// big-endian encoding nosshtradamus uses for its own SSH channel request
// payloads (see internal/sshproxy/ptyreq.go in the teacher repo): a uint8
// kind tag, a uint32 big-endian payload length, then the payload bytes.
package wireproto

import (
	"bytes"
	"encoding/binary"
	"io"
	"fmt"
)

// Kind tags one wire message type.
type Kind uint8

const (
	KindSetup Kind = iota + 1
	KindReady
	KindKeyEvent
	KindMoveRel
	KindClickEvent
	KindSetMousePosScreenRel
	KindGetClipboard
	KindSetClipboard
	KindSetBrightness
	KindEdgeMaskChange
	KindLogMsg
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "SETUP"
	case KindReady:
		return "READY"
	case KindKeyEvent:
		return "KEYEVENT"
	case KindMoveRel:
		return "MOVEREL"
	case KindClickEvent:
		return "CLICKEVENT"
	case KindSetMousePosScreenRel:
		return "SETMOUSEPOSSCREENREL"
	case KindGetClipboard:
		return "GETCLIPBOARD"
	case KindSetClipboard:
		return "SETCLIPBOARD"
	case KindSetBrightness:
		return "SETBRIGHTNESS"
	case KindEdgeMaskChange:
		return "EDGEMASKCHANGE"
	case KindLogMsg:
		return "LOGMSG"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Direction is one of the four neighbor directions an edge mask bit names.
type Direction uint8

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "LEFT"
	case DirRight:
		return "RIGHT"
	case DirUp:
		return "UP"
	case DirDown:
		return "DOWN"
	default:
		return "?"
	}
}

// validMaskBits covers exactly the four defined directions; any other bit
// set in an edge mask is invalid and must fail the sender (spec §6).
const validMaskBits = uint8(1<<DirLeft | 1<<DirRight | 1<<DirUp | 1<<DirDown)

// ErrInvalidMask is returned when an edge mask sets a bit outside the four
// defined directions.
var ErrInvalidMask = fmt.Errorf("wireproto: edge mask has invalid bits set")

// ErrProtocolViolation is the shared sentinel for "unexpected message type
// or malformed payload" (spec §4.3), treated identically to an I/O failure
// by the remote lifecycle (spec §7(b)).
var ErrProtocolViolation = fmt.Errorf("wireproto: protocol violation")

// ValidateMask rejects any mask with bits outside the four defined
// directions.
func ValidateMask(mask uint8) error {
	if mask&^validMaskBits != 0 {
		return ErrInvalidMask
	}
	return nil
}

// KeyAction distinguishes a key/button press from a release.
type KeyAction uint8

const (
	ActionRelease KeyAction = 0
	ActionPress   KeyAction = 1
)

// Message is one decoded wire message. Exactly one of the typed payload
// fields is meaningful, selected by Kind.
type Message struct {
	Kind Kind

	// SETUP
	ProtocolVersion uint32
	Params          map[string]string

	// KEYEVENT
	KeyCode uint32
	KeyAct  KeyAction

	// MOVEREL
	DX, DY int32

	// CLICKEVENT
	Button    uint32
	ClickAct  KeyAction

	// SETMOUSEPOSSCREENREL
	X, Y float32

	// SETCLIPBOARD
	Clipboard []byte

	// SETBRIGHTNESS
	Brightness float32

	// EDGEMASKCHANGE
	OldMask, NewMask uint8

	// LOGMSG
	Log string
}

// Encode serializes one message to its wire form: kind, big-endian uint32
// payload length, payload.
func Encode(m *Message) ([]byte, error) {
	payload, err := encodePayload(m)
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(m.Kind))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

func encodePayload(m *Message) ([]byte, error) {
	buf := &bytes.Buffer{}
	switch m.Kind {
	case KindSetup:
		if err := binary.Write(buf, binary.BigEndian, m.ProtocolVersion); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, uint32(len(m.Params))); err != nil {
			return nil, err
		}
		for k, v := range m.Params {
			if err := writeString(buf, k); err != nil {
				return nil, err
			}
			if err := writeString(buf, v); err != nil {
				return nil, err
			}
		}
	case KindReady:
		// no payload
	case KindKeyEvent:
		if err := binary.Write(buf, binary.BigEndian, m.KeyCode); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(m.KeyAct))
	case KindMoveRel:
		if err := binary.Write(buf, binary.BigEndian, m.DX); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, m.DY); err != nil {
			return nil, err
		}
	case KindClickEvent:
		if err := binary.Write(buf, binary.BigEndian, m.Button); err != nil {
			return nil, err
		}
		buf.WriteByte(byte(m.ClickAct))
	case KindSetMousePosScreenRel:
		if err := binary.Write(buf, binary.BigEndian, m.X); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, m.Y); err != nil {
			return nil, err
		}
	case KindGetClipboard:
		// no payload
	case KindSetClipboard:
		if err := binary.Write(buf, binary.BigEndian, uint32(len(m.Clipboard))); err != nil {
			return nil, err
		}
		buf.Write(m.Clipboard)
	case KindSetBrightness:
		if err := binary.Write(buf, binary.BigEndian, m.Brightness); err != nil {
			return nil, err
		}
	case KindEdgeMaskChange:
		if err := ValidateMask(m.OldMask); err != nil {
			return nil, err
		}
		if err := ValidateMask(m.NewMask); err != nil {
			return nil, err
		}
		buf.WriteByte(m.OldMask)
		buf.WriteByte(m.NewMask)
		if err := binary.Write(buf, binary.BigEndian, m.X); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.BigEndian, m.Y); err != nil {
			return nil, err
		}
	case KindLogMsg:
		if err := writeString(buf, m.Log); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("wireproto: unknown kind %v", m.Kind)
	}
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload parses a payload given its kind, the inverse of
// encodePayload.
func DecodePayload(kind Kind, payload []byte) (*Message, error) {
	r := bytes.NewReader(payload)
	m := &Message{Kind: kind}
	switch kind {
	case KindSetup:
		if err := binary.Read(r, binary.BigEndian, &m.ProtocolVersion); err != nil {
			return nil, err
		}
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		m.Params = make(map[string]string, n)
		for i := uint32(0); i < n; i++ {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readString(r)
			if err != nil {
				return nil, err
			}
			m.Params[k] = v
		}
	case KindReady:
		// no payload
	case KindKeyEvent:
		if err := binary.Read(r, binary.BigEndian, &m.KeyCode); err != nil {
			return nil, err
		}
		act, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		m.KeyAct = KeyAction(act)
	case KindMoveRel:
		if err := binary.Read(r, binary.BigEndian, &m.DX); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &m.DY); err != nil {
			return nil, err
		}
	case KindClickEvent:
		if err := binary.Read(r, binary.BigEndian, &m.Button); err != nil {
			return nil, err
		}
		act, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		m.ClickAct = KeyAction(act)
	case KindSetMousePosScreenRel:
		if err := binary.Read(r, binary.BigEndian, &m.X); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &m.Y); err != nil {
			return nil, err
		}
	case KindGetClipboard:
		// no payload
	case KindSetClipboard:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		m.Clipboard = b
	case KindSetBrightness:
		if err := binary.Read(r, binary.BigEndian, &m.Brightness); err != nil {
			return nil, err
		}
	case KindEdgeMaskChange:
		old, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		nw, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := ValidateMask(old); err != nil {
			return nil, err
		}
		if err := ValidateMask(nw); err != nil {
			return nil, err
		}
		m.OldMask, m.NewMask = old, nw
		if err := binary.Read(r, binary.BigEndian, &m.X); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &m.Y); err != nil {
			return nil, err
		}
	case KindLogMsg:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		m.Log = s
	default:
		return nil, fmt.Errorf("wireproto: unknown kind %v", kind)
	}
	return m, nil
}
