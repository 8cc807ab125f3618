// Package udpwire implements the binary datagram encoding of IPK24-CHAT
// used over the UDP transport binding.
//
// Layout (all multi-byte integers network byte order):
//
//	offset 0: kind    (u8)
//	offset 1: msg_id  (u16)
//	per-kind payload follows, strings NUL-terminated, no length prefix.
package udpwire

import (
	"encoding/binary"
	"fmt"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
)

const headerSize = 3 // kind (1) + msg_id (2)

// wireKind maps proto.Kind to its on-wire byte, matching the original
// implementation's MSG_TYPE enum (ConstsFile.h) rather than proto.Kind's
// iota ordering, which is declared independently for decode/encode symmetry
// only within this package.
func wireKind(k proto.Kind) (byte, error) {
	switch k {
	case proto.KindConfirm:
		return 0x00, nil
	case proto.KindReply:
		return 0x01, nil
	case proto.KindAuth:
		return 0x02, nil
	case proto.KindJoin:
		return 0x03, nil
	case proto.KindMsg:
		return 0x04, nil
	case proto.KindErr:
		return 0xFE, nil
	case proto.KindBye:
		return 0xFF, nil
	default:
		return 0, fmt.Errorf("encode: %w", proto.ErrUnknownKind)
	}
}

func fromWireKind(b byte) (proto.Kind, error) {
	switch b {
	case 0x00:
		return proto.KindConfirm, nil
	case 0x01:
		return proto.KindReply, nil
	case 0x02:
		return proto.KindAuth, nil
	case 0x03:
		return proto.KindJoin, nil
	case 0x04:
		return proto.KindMsg, nil
	case 0xFE:
		return proto.KindErr, nil
	case 0xFF:
		return proto.KindBye, nil
	default:
		return 0, fmt.Errorf("decode: kind byte 0x%02x: %w", b, proto.ErrUnknownKind)
	}
}

// Encode renders m with the given msg_id (or ref_id, for CONFIRM) as a
// datagram. Encoding is byte-for-byte deterministic for a given input.
func Encode(m proto.Message, id uint16) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	kb, err := wireKind(m.Kind)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, headerSize)
	buf[0] = kb
	binary.BigEndian.PutUint16(buf[1:3], id)

	switch m.Kind {
	case proto.KindConfirm, proto.KindBye:
		// id field IS the ref_id for CONFIRM; BYE carries no payload.
	case proto.KindReply:
		result := byte(0)
		if m.Result {
			result = 1
		}
		buf = append(buf, result)
		refID := make([]byte, 2)
		binary.BigEndian.PutUint16(refID, m.RefID)
		buf = append(buf, refID...)
		buf = appendNulString(buf, m.Content)
	case proto.KindAuth:
		buf = appendNulString(buf, m.Username)
		buf = appendNulString(buf, m.DisplayName)
		buf = appendNulString(buf, m.Secret)
	case proto.KindJoin:
		buf = appendNulString(buf, m.ChannelID)
		buf = appendNulString(buf, m.DisplayName)
	case proto.KindMsg, proto.KindErr:
		buf = appendNulString(buf, m.DisplayName)
		buf = appendNulString(buf, m.Content)
	}
	return buf, nil
}

func appendNulString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0x00)
}

// Decode parses a single datagram and returns the decoded Message. For
// CONFIRM the header's id field is returned as Message.RefID; for every
// other kind the header msg_id is not part of the result (HeaderID reads
// it).
func Decode(data []byte) (proto.Message, error) {
	if len(data) < headerSize {
		return proto.Message{}, fmt.Errorf("datagram shorter than header: %w", proto.ErrMalformedFrame)
	}
	kind, err := fromWireKind(data[0])
	if err != nil {
		return proto.Message{}, err
	}
	id := binary.BigEndian.Uint16(data[1:3])
	rest := data[headerSize:]

	switch kind {
	case proto.KindConfirm:
		return proto.Message{Kind: proto.KindConfirm, RefID: id}, nil
	case proto.KindBye:
		return proto.NewBye(), nil
	case proto.KindReply:
		// result(1) + ref_id(2) + content(NUL-terminated)
		if len(rest) < 1+2 {
			return proto.Message{}, fmt.Errorf("REPLY too short: %w", proto.ErrMalformedFrame)
		}
		result := rest[0] != 0
		refID := binary.BigEndian.Uint16(rest[1:3])
		content, _, err := readNulString(rest[3:])
		if err != nil {
			return proto.Message{}, fmt.Errorf("REPLY content: %w", err)
		}
		return proto.NewReply(result, refID, content)
	case proto.KindAuth:
		username, rest, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("AUTH username: %w", err)
		}
		display, rest, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("AUTH display_name: %w", err)
		}
		secret, _, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("AUTH secret: %w", err)
		}
		return proto.NewAuth(username, display, secret)
	case proto.KindJoin:
		channel, rest, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("JOIN channel_id: %w", err)
		}
		display, _, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("JOIN display_name: %w", err)
		}
		return proto.NewJoin(channel, display)
	case proto.KindMsg, proto.KindErr:
		display, rest, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("%s display_name: %w", kind, err)
		}
		content, _, err := readNulString(rest)
		if err != nil {
			return proto.Message{}, fmt.Errorf("%s content: %w", kind, err)
		}
		if kind == proto.KindMsg {
			return proto.NewMsg(display, content)
		}
		return proto.NewErr(display, content)
	default:
		return proto.Message{}, fmt.Errorf("decode: %w", proto.ErrUnknownKind)
	}
}

// HeaderID extracts the msg_id/ref_id field without fully decoding the
// payload; used by the receive path to route CONFIRMs and acknowledge
// datagrams cheaply.
func HeaderID(data []byte) (uint16, error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("datagram shorter than header: %w", proto.ErrMalformedFrame)
	}
	return binary.BigEndian.Uint16(data[1:3]), nil
}

// HeaderKind extracts the kind byte without fully decoding the payload.
func HeaderKind(data []byte) (proto.Kind, error) {
	if len(data) < headerSize {
		return 0, fmt.Errorf("datagram shorter than header: %w", proto.ErrMalformedFrame)
	}
	return fromWireKind(data[0])
}

// readNulString reads bytes up to and including the first 0x00 in buf,
// returning the string (without the terminator) and the remaining bytes.
func readNulString(buf []byte) (string, []byte, error) {
	for i, b := range buf {
		if b == 0x00 {
			return string(buf[:i]), buf[i+1:], nil
		}
	}
	return "", nil, proto.ErrUnterminated
}
