// Package proto defines the transport-independent IPK24-CHAT message model:
// the six message kinds, their field layout, and the validation rules that
// both constructors and wire decoders must apply.
package proto

import "fmt"

// Kind identifies one of the six IPK24-CHAT message types, plus CONFIRM.
type Kind uint8

const (
	KindConfirm Kind = iota
	KindReply
	KindAuth
	KindJoin
	KindMsg
	KindErr
	KindBye
)

func (k Kind) String() string {
	switch k {
	case KindConfirm:
		return "CONFIRM"
	case KindReply:
		return "REPLY"
	case KindAuth:
		return "AUTH"
	case KindJoin:
		return "JOIN"
	case KindMsg:
		return "MSG"
	case KindErr:
		return "ERR"
	case KindBye:
		return "BYE"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is a tagged record over the fields of every IPK24-CHAT message.
// Only the fields relevant to Kind are meaningful; the zero value of all
// other fields is never inspected.
type Message struct {
	Kind Kind

	RefID  uint16 // CONFIRM, REPLY
	Result bool   // REPLY

	Content string // REPLY, MSG, ERR

	Username    string // AUTH
	DisplayName string // AUTH, JOIN, MSG, ERR
	Secret      string // AUTH
	ChannelID   string // JOIN
}

// NewConfirm builds a CONFIRM acknowledging refID.
func NewConfirm(refID uint16) Message {
	return Message{Kind: KindConfirm, RefID: refID}
}

// NewReply builds a REPLY in answer to refID.
func NewReply(result bool, refID uint16, content string) (Message, error) {
	m := Message{Kind: KindReply, Result: result, RefID: refID, Content: content}
	return m, m.Validate()
}

// NewAuth builds an AUTH request.
func NewAuth(username, displayName, secret string) (Message, error) {
	m := Message{Kind: KindAuth, Username: username, DisplayName: displayName, Secret: secret}
	return m, m.Validate()
}

// NewJoin builds a JOIN request.
func NewJoin(channelID, displayName string) (Message, error) {
	m := Message{Kind: KindJoin, ChannelID: channelID, DisplayName: displayName}
	return m, m.Validate()
}

// NewMsg builds a chat MSG.
func NewMsg(displayName, content string) (Message, error) {
	m := Message{Kind: KindMsg, DisplayName: displayName, Content: content}
	return m, m.Validate()
}

// NewErr builds an ERR.
func NewErr(displayName, content string) (Message, error) {
	m := Message{Kind: KindErr, DisplayName: displayName, Content: content}
	return m, m.Validate()
}

// NewBye builds a BYE.
func NewBye() Message {
	return Message{Kind: KindBye}
}

// Validate enforces the field constraints for m.Kind. It is called by
// every constructor above and by both wire decoders; a constructor or
// decoder that produced an invalid Message returns this error alongside
// it.
func (m Message) Validate() error {
	switch m.Kind {
	case KindConfirm:
		return nil
	case KindReply:
		return ValidContent(m.Content)
	case KindAuth:
		if err := ValidUsername(m.Username); err != nil {
			return err
		}
		if err := ValidDisplayName(m.DisplayName); err != nil {
			return err
		}
		return ValidSecret(m.Secret)
	case KindJoin:
		if err := ValidChannelID(m.ChannelID); err != nil {
			return err
		}
		return ValidDisplayName(m.DisplayName)
	case KindMsg, KindErr:
		if err := ValidDisplayName(m.DisplayName); err != nil {
			return err
		}
		return ValidContent(m.Content)
	case KindBye:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(m.Kind))
	}
}
