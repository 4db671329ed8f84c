/*
Package main is a line-oriented terminal peer for the chat server.

Every line read from standard input is sent as a chat message. Received messages and user
count updates are printed to standard output.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/Quote121/threaded-sockets/internal/app/peer"
	"github.com/Quote121/threaded-sockets/internal/app/protocol"
	"github.com/Quote121/threaded-sockets/internal/pkg/logx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr    string
		alias   string
		verbose bool
	)

	flagSet := pflag.NewFlagSet("client", pflag.ContinueOnError)
	flagSet.StringVarP(&addr, "addr", "a", "127.0.0.1:27015", "server address")
	flagSet.StringVarP(&alias, "alias", "n", "", "alias to request (at most 10 bytes)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log connection events to stderr")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if alias == "" {
		return errors.New("--alias is required")
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logx.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	client, err := peer.Dial(dialCtx, addr)
	cancelDial()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Negotiate(alias); err != nil {
		return err
	}
	logx.Debug("Alias accepted.", "alias", client.Alias(), "addr", addr)
	fmt.Printf("Connected to %s as %s\n", addr, client.Alias())
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("Type a message and press Enter. Ctrl+D leaves the chat.")
	}

	received := make(chan error, 1)
	go func() {
		received <- printIncoming(client, os.Stdout)
	}()

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-received:
			if errors.Is(err, protocol.ErrConnectionClosed) {
				fmt.Println("Server closed the connection.")
				return nil
			}
			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := client.Send(line); err != nil {
				return err
			}
		}
	}
}

// printIncoming prints every packet from the server until the connection ends.
func printIncoming(client *peer.Client, out io.Writer) error {
	for {
		packet, err := client.Receive()
		if err != nil {
			return err
		}

		switch packet.Type {
		case protocol.Message:
			fmt.Fprintln(out, packet.Payload)
		case protocol.ConnUsers:
			if count, err := protocol.ParseConnUsers(packet); err == nil {
				fmt.Fprintf(out, "[%d connected]\n", count)
			}
		default:
			logx.Debug("Ignoring packet.", "msg_type", packet.Type.String())
		}
	}
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxPayload)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
