package cli

import (
	"bufio"
	"context"
	"io"

	"github.com/malbeclabs/ipk24chat-client/internal/chatlog"
	"github.com/malbeclabs/ipk24chat-client/internal/session"
)

// Run is the input loop: it reads lines from r, dispatches each to the
// matching Session method, and renders /help and local errors through
// log. It returns once stdin hits EOF, ctx is cancelled, or the session
// itself finishes (e.g. driven to END by the receive path) — in every
// case the session is left terminating or already terminated.
func Run(ctx context.Context, s *session.Session, r io.Reader, log *chatlog.Log) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 4096), 64*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.Terminate()
			return
		case <-s.Done():
			return
		case line, ok := <-lines:
			if !ok {
				s.Terminate()
				return
			}
			handleLine(s, line, log)
		}
	}
}

func handleLine(s *session.Session, line string, log *chatlog.Log) {
	cmd, err := ParseCommand(line)
	if err != nil {
		log.LocalError(err.Error())
		return
	}
	if cmd == nil {
		return
	}

	switch c := cmd.(type) {
	case CmdAuth:
		err = s.Auth(c.Username, c.Secret, c.DisplayName)
	case CmdJoin:
		err = s.Join(c.ChannelID)
	case CmdRename:
		err = s.Rename(c.DisplayName)
	case CmdHelp:
		log.Help()
		return
	case CmdMessage:
		err = s.SendText(c.Text)
	}
	if err != nil {
		log.LocalError(err.Error())
	}
}
