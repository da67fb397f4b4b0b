// Package terminal implements the interactive chat mode for the anychat
// command line.
//
// It reads user lines from an input stream, relays them through a
// connected proxy and prints the agent's replies, so a person can hold a
// conversation with any endpoint the proxy can reach. Everything said
// lands in the proxy's transcript and can be exported afterwards.
//
// # Usage
//
// Connect a proxy first, then hand it to the terminal:
//
//	p := proxy.New(logger)
//	if err := p.Connect(ctx, url, hints); err != nil {
//	    // handle error
//	}
//
//	term := terminal.New(p)
//	err := term.Run(ctx, initialMessage)
//
// # Commands
//
// Besides chat messages the loop understands a few commands:
//
//   - quit, exit, q: end the session
//   - history: print the numbered transcript so far
//   - reset: clear the transcript (and reload the page in browser mode)
//   - screenshot: capture the page in browser mode
//
// Blank lines are ignored. A failed exchange prints the error and keeps
// the prompt alive so one bad turn does not end the conversation.
package terminal
