// Package chatlog renders the user-visible status and chat lines: local
// errors and replies go to stderr, incoming chat messages go to stdout,
// matching the split a terminal chat client expects between diagnostics
// and conversation.
package chatlog

import (
	"fmt"
	"io"
)

// Log writes the rendered lines to Err (diagnostics: local errors, peer
// errors, AUTH/JOIN replies) and Out (chat messages from other users).
type Log struct {
	Out io.Writer
	Err io.Writer
}

// New returns a Log writing to the given streams.
func New(out, err io.Writer) *Log {
	return &Log{Out: out, Err: err}
}

// LocalError reports a problem this client detected on its own side —
// bad input, a local protocol violation, a transport failure.
func (l *Log) LocalError(msg string) {
	fmt.Fprintf(l.Err, "ERR: %s\n", msg)
}

// PeerError renders an ERR message received from the server.
func (l *Log) PeerError(displayName, msg string) {
	fmt.Fprintf(l.Err, "ERR FROM %s: %s\n", displayName, msg)
}

// Reply renders the result of an AUTH or JOIN request.
func (l *Log) Reply(ok bool, reason string) {
	word := "Failure"
	if ok {
		word = "Success"
	}
	fmt.Fprintf(l.Err, "%s: %s\n", word, reason)
}

// Chat renders an incoming chat message.
func (l *Log) Chat(displayName, text string) {
	fmt.Fprintf(l.Out, "%s: %s\n", displayName, text)
}

const helpText = `Supported commands:
  /auth <username> <secret> <display-name>   authenticate
  /join <channel-id>                         join a channel
  /rename <display-name>                     change local display name
  /help                                      show this text
  <anything else>                            send as a chat message
`

// Help prints the local command summary to stdout.
func (l *Log) Help() {
	fmt.Fprint(l.Out, helpText)
}
