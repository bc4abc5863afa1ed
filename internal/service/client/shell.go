package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/oshokin/gatekeeper/internal/logger"
	"github.com/oshokin/gatekeeper/internal/protocol"
	"github.com/oshokin/gatekeeper/internal/transport/udp"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// shellAliases maps friendly words to protocol tokens.
//
//nolint:gochecknoglobals // Read-only lookup table.
var shellAliases = map[string]string{
	"status":      protocol.TokenStatus,
	"open":        protocol.TokenOpen,
	"subscribe":   protocol.TokenSubscribe,
	"unsubscribe": protocol.TokenUnsubscribe,
}

// Shell runs an interactive prompt. Replies and ring notifications are
// printed as they arrive.
func Shell(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "gatectl")

	client, err := udp.Dial(ctx, opts.address(), udp.WithTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gate> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("create readline: %w", err)
	}

	defer rl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, errs := receiveLoop(ctx, client)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-messages:
				_, _ = fmt.Fprint(rl.Stdout(), msg)
			case err := <-errs:
				_, _ = fmt.Fprintf(rl.Stderr(), "receive: %v\n", err)

				return
			}
		}
	}()

	printShellHelp(rl.Stdout(), opts.address())

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}

			return nil
		}

		if err := execShellLine(line, client, rl.Stdout()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}

			_, _ = fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
		}
	}

	return nil
}

// sender writes one command datagram.
type sender interface {
	Send(command string) error
}

// execShellLine handles one line of input.
func execShellLine(line string, client sender, out io.Writer) error {
	input := strings.TrimSpace(line)
	if input == "" {
		return nil
	}

	word := strings.Fields(input)[0]

	switch strings.ToLower(word) {
	case "help", "?":
		printShellHelp(out, "")

		return nil
	case "quit", "exit":
		return errQuit
	}

	if token, ok := shellAliases[strings.ToLower(word)]; ok {
		return client.Send(token)
	}

	// Anything else goes out verbatim, so raw protocol tokens work too.
	return client.Send(input)
}

func printShellHelp(out io.Writer, address string) {
	if address != "" {
		_, _ = fmt.Fprintf(out, "Connected to %s\n", address)
	}

	_, _ = fmt.Fprintln(out, "Commands: status, open, subscribe, unsubscribe, help, quit. Other input is sent verbatim.")
}
