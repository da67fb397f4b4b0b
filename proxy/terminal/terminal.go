package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anychat/anychat/proxy"
	"github.com/anychat/anychat/session"
)

// Terminal runs the interactive chat loop over a connected proxy.
type Terminal struct {
	proxy *proxy.Proxy
	in    io.Reader
	out   io.Writer
}

// New creates a Terminal reading stdin and writing stdout.
func New(p *proxy.Proxy) *Terminal {
	return NewWithIO(p, os.Stdin, os.Stdout)
}

// NewWithIO is New with the streams replaced, for tests and embedding.
func NewWithIO(p *proxy.Proxy, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{proxy: p, in: in, out: out}
}

// Run starts the interactive session. An initial message, when given, is
// sent before the prompt loop starts; a failure there aborts the session,
// while failures inside the loop are printed and the prompt continues.
func (t *Terminal) Run(ctx context.Context, initial string) error {
	if initial != "" {
		if err := t.exchange(ctx, initial); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.out, "Chat started. Commands: quit, history, reset, screenshot")
	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "You: ")
		if !scanner.Scan() {
			// EOF or read error ends the session
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			return scanner.Err()
		case "history":
			t.printHistory()
			continue
		case "reset":
			if err := t.proxy.Reset(ctx); err != nil {
				fmt.Fprintf(t.out, "Error: %v\n", err)
			} else {
				fmt.Fprintln(t.out, "Conversation reset")
			}
			continue
		case "screenshot":
			status, err := t.proxy.Screenshot("debug_screenshot.png")
			if err != nil {
				fmt.Fprintf(t.out, "Error: %v\n", err)
			} else {
				fmt.Fprintln(t.out, status)
			}
			continue
		}

		if err := t.exchange(ctx, line); err != nil {
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (t *Terminal) exchange(ctx context.Context, message string) error {
	reply, err := t.proxy.Say(ctx, message)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Agent: %s\n\n", reply)
	return nil
}

func (t *Terminal) printHistory() {
	turns := t.proxy.History()
	if len(turns) == 0 {
		fmt.Fprintln(t.out, "No conversation yet.")
		return
	}
	for i, turn := range turns {
		who := "Agent"
		if turn.Role == session.RoleUser {
			who = "You"
		}
		fmt.Fprintf(t.out, "%d. [%s]: %s\n", i+1, who, clip(turn.Content, 80))
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
