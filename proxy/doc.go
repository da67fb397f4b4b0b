// Package proxy provides the high-level conversation surface for talking
// to any chat endpoint through one API.
//
// A Proxy hides the difference between a vendor REST API, a local model
// server, a WebSocket bridge, an MCP server subprocess and a chat web
// page behind three calls: Connect, Say, Close. Callers never pick a
// protocol; Connect resolves one.
//
// # Architecture
//
// The proxy composes the lower layers:
//
//   - probe: turns a URL plus optional hints into an endpoint kind and a
//     ready-to-use configuration
//   - adapter: one Send/Close implementation per network protocol
//   - browser: a Chromium driver for pages with no API at all
//   - session: the transcript every exchange is recorded into
//
// Capability checks run between detection and transport setup, so a host
// without Chromium refuses browser endpoints before anything is opened,
// and a missing vendor credential surfaces as a typed CapabilityError
// instead of a failed request later.
//
// # Usage
//
//	p := proxy.New(logger)
//	if err := p.Connect(ctx, "http://localhost:11434", nil); err != nil {
//	    // handle error
//	}
//	defer p.Close()
//
//	reply, err := p.Say(ctx, "Hello!")
//	if err != nil {
//	    // the failed turn is still in the transcript
//	}
//
//	_, _ = p.Export("conversation.json")
//
// Every Say appends the user turn and the reply (or the error) to the
// transcript, so an export after a crash shows the full path to the
// failure.
package proxy
