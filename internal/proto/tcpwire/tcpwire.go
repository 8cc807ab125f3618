// Package tcpwire implements the CRLF-framed line encoding of IPK24-CHAT
// used over the TCP transport binding.
package tcpwire

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/malbeclabs/ipk24chat-client/internal/proto"
)

const crlf = "\r\n"

// Encode renders m as its canonical, uppercase-command CRLF line.
func Encode(m proto.Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var b strings.Builder
	switch m.Kind {
	case proto.KindAuth:
		fmt.Fprintf(&b, "AUTH %s AS %s USING %s", m.Username, m.DisplayName, m.Secret)
	case proto.KindJoin:
		fmt.Fprintf(&b, "JOIN %s AS %s", m.ChannelID, m.DisplayName)
	case proto.KindMsg:
		fmt.Fprintf(&b, "MSG FROM %s IS %s", m.DisplayName, m.Content)
	case proto.KindErr:
		fmt.Fprintf(&b, "ERR FROM %s IS %s", m.DisplayName, m.Content)
	case proto.KindReply:
		result := "NOK"
		if m.Result {
			result = "OK"
		}
		fmt.Fprintf(&b, "REPLY %s IS %s", result, m.Content)
	case proto.KindBye:
		b.WriteString("BYE")
	case proto.KindConfirm:
		// CONFIRM has no stream-variant grammar; it exists only on the UDP
		// wire.
		return nil, fmt.Errorf("encode CONFIRM: %w", proto.ErrUnsupportedKind)
	default:
		return nil, fmt.Errorf("encode: %w", proto.ErrUnknownKind)
	}
	b.WriteString(crlf)
	return []byte(b.String()), nil
}

// Decoder accumulates bytes across recv boundaries and extracts complete
// CRLF-terminated lines, preserving any partial tail for the next Append
// call. It has no I/O of its own; callers feed it bytes read from a
// transport.Transport.
type Decoder struct {
	buf bytes.Buffer
}

// Append adds chunk to the internal buffer and returns every complete line
// decoded so far, in arrival order. A decode error on one line aborts the
// whole call so the caller can react to the protocol violation.
func (d *Decoder) Append(chunk []byte) ([]proto.Message, error) {
	d.buf.Write(chunk)

	var out []proto.Message
	for {
		b := d.buf.Bytes()
		idx := bytes.Index(b, []byte(crlf))
		if idx < 0 {
			break
		}
		line := string(b[:idx])
		d.buf.Next(idx + len(crlf))

		m, err := decodeLine(line)
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

// decodeLine parses a single CRLF-stripped line. Command tokens are
// matched case-insensitively; the words after the fixed prefix are joined
// with single spaces to form the trailing free-text field, so runs of
// whitespace inside it are collapsed.
func decodeLine(line string) (proto.Message, error) {
	fields := strings.SplitN(line, " ", 2)
	cmd := strings.ToUpper(fields[0])

	switch cmd {
	case "AUTH":
		// AUTH <username> AS <display> USING <secret>
		parts := strings.Fields(line)
		if len(parts) != 6 || !strings.EqualFold(parts[2], "AS") || !strings.EqualFold(parts[4], "USING") {
			return proto.Message{}, fmt.Errorf("decode AUTH: %w", proto.ErrMalformedFrame)
		}
		return proto.NewAuth(parts[1], parts[3], parts[5])
	case "JOIN":
		// JOIN <channel> AS <display>
		parts := strings.Fields(line)
		if len(parts) != 4 || !strings.EqualFold(parts[2], "AS") {
			return proto.Message{}, fmt.Errorf("decode JOIN: %w", proto.ErrMalformedFrame)
		}
		return proto.NewJoin(parts[1], parts[3])
	case "MSG":
		return decodeFromIs("MSG", line, proto.NewMsg)
	case "ERR":
		return decodeFromIs("ERR", line, proto.NewErr)
	case "REPLY":
		// REPLY OK|NOK IS <content>
		parts := strings.Fields(line)
		if len(parts) < 4 || !strings.EqualFold(parts[2], "IS") {
			return proto.Message{}, fmt.Errorf("decode REPLY: %w", proto.ErrMalformedFrame)
		}
		var result bool
		switch strings.ToUpper(parts[1]) {
		case "OK":
			result = true
		case "NOK":
			result = false
		default:
			return proto.Message{}, fmt.Errorf("decode REPLY: %w", proto.ErrMalformedFrame)
		}
		content := strings.Join(parts[3:], " ")
		return proto.NewReply(result, 0, content)
	case "BYE":
		if len(fields) > 1 && fields[1] != "" {
			return proto.Message{}, fmt.Errorf("decode BYE: %w", proto.ErrMalformedFrame)
		}
		return proto.NewBye(), nil
	default:
		return proto.Message{}, fmt.Errorf("decode %q: %w", cmd, proto.ErrMalformedFrame)
	}
}

// decodeFromIs parses the shared "<CMD> FROM <display> IS <content>" shape
// used by both MSG and ERR.
func decodeFromIs(cmd, line string, build func(displayName, content string) (proto.Message, error)) (proto.Message, error) {
	parts := strings.Fields(line)
	if len(parts) < 5 || !strings.EqualFold(parts[1], "FROM") || !strings.EqualFold(parts[3], "IS") {
		return proto.Message{}, fmt.Errorf("decode %s: %w", cmd, proto.ErrMalformedFrame)
	}
	content := strings.Join(parts[4:], " ")
	return build(parts[2], content)
}
