// Command ipk24chat-client is a terminal client for the IPK24-CHAT
// protocol over TCP or UDP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/malbeclabs/ipk24chat-client/internal/chatlog"
	"github.com/malbeclabs/ipk24chat-client/internal/cli"
	"github.com/malbeclabs/ipk24chat-client/internal/receiver"
	"github.com/malbeclabs/ipk24chat-client/internal/reliability"
	"github.com/malbeclabs/ipk24chat-client/internal/session"
	"github.com/malbeclabs/ipk24chat-client/internal/transport"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		transportType string
		server        string
		port          uint16
		udpTimeout    time.Duration
		udpRetries    int
		verbose       bool
	)

	pflag.StringVarP(&transportType, "transport", "t", "", "transport protocol [tcp|udp] (required)")
	pflag.StringVarP(&server, "server", "s", "", "server IP address or hostname (required)")
	pflag.Uint16VarP(&port, "port", "p", 4567, "server port")
	pflag.DurationVarP(&udpTimeout, "udp-timeout", "d", 250*time.Millisecond, "UDP confirmation timeout")
	pflag.IntVarP(&udpRetries, "udp-retries", "r", 3, "maximum UDP transmissions per message, including the first")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logs")
	pflag.Parse()

	if transportType != "tcp" && transportType != "udp" {
		fmt.Fprintln(os.Stderr, "error: -t must be 'tcp' or 'udp'")
		pflag.Usage()
		return 2
	}
	if server == "" {
		fmt.Fprintln(os.Stderr, "error: -s is required")
		pflag.Usage()
		return 2
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		tr  transport.Transport
		rel *reliability.Reliability
	)
	addr := fmt.Sprintf("%s:%d", server, port)
	if transportType == "tcp" {
		tr = transport.NewTCP()
	} else {
		tr = transport.NewUDP(udpTimeout)
		rel = reliability.New(udpRetries)
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, 5*time.Second)
	defer cancelDial()
	if err := tr.Open(dialCtx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "ERR: failed to connect to %s: %v\n", addr, err)
		return 1
	}
	defer tr.Close()

	out := chatlog.New(os.Stdout, os.Stderr)

	s := session.New(session.Config{
		Transport:   tr,
		Reliability: rel,
		Retries:     udpRetries,
		Timeout:     udpTimeout,
		Sink:        out,
		Log:         log,
	})

	schedErr := make(chan error, 1)
	go func() { schedErr <- session.RunScheduler(ctx, s) }()

	go func() {
		if tr.Kind() == transport.UDP {
			receiver.RunUDP(ctx, s)
		} else {
			receiver.RunTCP(ctx, s)
		}
	}()

	cli.Run(ctx, s, os.Stdin, out)

	<-s.Done()
	<-schedErr

	return s.ExitCode()
}
