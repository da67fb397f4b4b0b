package proxy

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anychat/anychat/adapter"
	"github.com/anychat/anychat/browser"
	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
	"github.com/anychat/anychat/session"
)

// Proxy speaks as the user to one chat endpoint. Connect resolves what
// the endpoint is, Say exchanges one turn, and everything said lands in a
// transcript that can be exported as JSON.
type Proxy struct {
	caps   Capabilities
	logger zerolog.Logger

	detection *probe.Result
	kind      probe.Kind
	cfg       probe.Config
	log       *session.Log

	// Exactly one of these is set after Connect: driver for browser mode,
	// adapter for everything else.
	adapter adapter.Adapter
	driver  *browser.Driver

	connected bool
}

// New returns a disconnected proxy with capabilities read from the host.
func New(logger zerolog.Logger) *Proxy {
	return NewWithCapabilities(DetectCapabilities(), logger)
}

// NewWithCapabilities is New with the host inspection replaced, for
// callers that already know what is available.
func NewWithCapabilities(caps Capabilities, logger zerolog.Logger) *Proxy {
	return &Proxy{
		caps:   caps,
		logger: logger.With().Str("component", "proxy").Logger(),
	}
}

// Connected reports whether Connect succeeded and Close has not run.
func (p *Proxy) Connected() bool { return p.connected }

// Kind returns the endpoint kind resolved at Connect time.
func (p *Proxy) Kind() probe.Kind { return p.kind }

// Endpoint returns the URL traffic is actually sent to, which detection
// may have moved away from the URL given to Connect.
func (p *Proxy) Endpoint() string { return p.cfg.Endpoint }

// Detection returns the full detection result, or nil before Connect.
func (p *Proxy) Detection() *probe.Result { return p.detection }

// History returns a copy of the transcript so far.
func (p *Proxy) History() []session.Message {
	if p.log == nil {
		return nil
	}
	return append([]session.Message(nil), p.log.Turns...)
}

// Connect probes url, checks the host can serve the detected kind and
// opens the transport. Nothing about the proxy changes when any step
// refuses, so a failed Connect can simply be retried with better hints.
func (p *Proxy) Connect(ctx context.Context, url string, hints *probe.Hints) error {
	res := probe.NewDetector(p.logger).Detect(ctx, url, hints)
	return p.ConnectWithResult(ctx, url, res)
}

// ConnectWithResult skips detection and connects using a result the
// caller already holds, typically from a separate probe run.
func (p *Proxy) ConnectWithResult(ctx context.Context, url string, res probe.Result) error {
	if p.connected {
		return errors.New("already connected to %s, close first", p.log.AgentURL)
	}
	if !res.Success {
		return errors.New("could not identify the endpoint at %s: %s", url, strings.Join(res.Notes, "; "))
	}
	if err := p.caps.check(res.Kind, res.Config); err != nil {
		return err
	}

	if res.Kind.Browser() {
		d, err := browser.New(ctx, res.Config, p.logger)
		if err != nil {
			return err
		}
		p.driver = d
	} else {
		a, err := adapter.New(ctx, res.Kind, res.Config, p.logger)
		if err != nil {
			return err
		}
		p.adapter = a
	}

	p.detection = &res
	p.kind = res.Kind
	p.cfg = res.Config
	p.log = session.New(url, string(res.Kind))
	p.connected = true

	p.logger.Info().
		Str("kind", string(res.Kind)).
		Str("endpoint", res.Config.Endpoint).
		Float64("confidence", res.Confidence).
		Msg("connected")
	return nil
}

// Say sends one user message and returns the reply. Both turns are
// recorded; a failed exchange records the error as the assistant turn so
// an exported transcript shows where the conversation derailed, and the
// error is still returned.
func (p *Proxy) Say(ctx context.Context, message string) (string, error) {
	if !p.connected {
		return "", errors.New("not connected, call Connect first")
	}

	// Adapters receive the turns from before this message; the message
	// itself travels separately.
	history := p.History()
	p.log.Append(session.RoleUser, message)

	reply, err := p.send(ctx, message, history)
	if err != nil {
		p.log.Append(session.RoleAssistant, "Error: "+err.Error())
		return "", err
	}
	p.log.Append(session.RoleAssistant, reply)
	return reply, nil
}

func (p *Proxy) send(ctx context.Context, message string, history []session.Message) (string, error) {
	if p.driver != nil {
		return p.driver.SendMessage(ctx, message)
	}
	return p.adapter.Send(ctx, message, history)
}

// Reset clears the transcript. Browser sessions also reload the page so
// the hosted UI forgets the thread.
func (p *Proxy) Reset(ctx context.Context) error {
	if p.log != nil {
		p.log.Clear()
	}
	if p.driver != nil {
		return p.driver.Reset(ctx)
	}
	return nil
}

// Export serializes the transcript as JSON and returns it, additionally
// writing it to path when path is not empty.
func (p *Proxy) Export(path string) (string, error) {
	if p.log == nil {
		return "", errors.New("nothing to export, connect first")
	}
	out, err := p.log.Export()
	if err != nil {
		return "", err
	}
	if path != "" {
		if err := p.log.Save(path); err != nil {
			return "", err
		}
		p.logger.Info().Str("path", path).Int("turns", len(p.log.Turns)).Msg("exported transcript")
	}
	return out, nil
}

// WaitForLogin blocks until a browser session is signed in. Non-browser
// transports have no login step and answer with a CapabilityError.
func (p *Proxy) WaitForLogin(ctx context.Context) (string, error) {
	if p.driver == nil {
		return "", &CapabilityError{Kind: p.kind, Missing: "login waits need a browser session"}
	}
	if err := p.driver.WaitForLogin(ctx); err != nil {
		return "", err
	}
	return "signed in and ready", nil
}

// Screenshot captures the page of a browser session to path.
func (p *Proxy) Screenshot(path string) (string, error) {
	if p.driver == nil {
		return "", &CapabilityError{Kind: p.kind, Missing: "screenshots need a browser session"}
	}
	if err := p.driver.Screenshot(path); err != nil {
		return "", err
	}
	return "screenshot saved to " + path, nil
}

// Close tears down whatever transport is open. Safe to call repeatedly.
func (p *Proxy) Close() error {
	var errs []error
	if p.adapter != nil {
		if err := p.adapter.Close(); err != nil {
			errs = append(errs, err)
		}
		p.adapter = nil
	}
	if p.driver != nil {
		if err := p.driver.Close(); err != nil {
			errs = append(errs, err)
		}
		p.driver = nil
	}
	p.connected = false
	return errors.Join(errs...)
}
