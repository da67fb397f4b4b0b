// Package browser drives chat web apps through a real Chromium instance
// for targets that expose no API at all. It finds the page's composer,
// types into it like a person would, and watches the rendered transcript
// until the reply stops changing. Hosted UIs with login walls are handled
// by opening a visible window and waiting for the user to sign in.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/anychat/anychat/errors"
	"github.com/anychat/anychat/probe"
)

const (
	inputSweepInterval   = 250 * time.Millisecond
	inputSweepTimeout    = 5 * time.Second
	responsePollInterval = 500 * time.Millisecond
	responseTimeout      = 120 * time.Second
	approvalInterval     = time.Second
	loginPollInterval    = 2 * time.Second
	navigateSettleWait   = 2 * time.Second
	submitRegisterWait   = time.Second
)

// stealthScript clears the automation marker before any site script runs,
// otherwise hosted UIs refuse the session outright.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// ElementNotFoundError reports that no selector produced a usable page
// element. Screenshot, when set, names a capture of the page taken at
// failure time.
type ElementNotFoundError struct {
	Role       string
	Screenshot string
}

func (e *ElementNotFoundError) Error() string {
	if e.Screenshot == "" {
		return fmt.Sprintf("could not find a usable %s element on the page", e.Role)
	}
	return fmt.Sprintf("could not find a usable %s element on the page (screenshot: %s)", e.Role, e.Screenshot)
}

// ResponseTimeoutError reports that the page produced no response text
// before the wait deadline.
type ResponseTimeoutError struct {
	Wait time.Duration
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("no response from the page within %s", e.Wait)
}

type driverState string

const (
	stateIdle      driverState = "idle"
	stateInput     driverState = "input_located"
	stateSubmitted driverState = "submitted"
	stateAwaiting  driverState = "awaiting_response"
	stateSettled   driverState = "settled"
	stateTimedOut  driverState = "timed_out"
)

// Driver owns one Chromium instance pointed at one chat page.
type Driver struct {
	cfg       probe.Config
	selectors selectorSet
	logger    zerolog.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	// ownsDataDir marks a throwaway profile; a user-supplied UserDataDir
	// is never removed so logins survive restarts.
	ownsDataDir bool
	state       driverState
	closed      bool
}

// New launches Chromium and opens the configured chat page. When
// cfg.Headless is unset the window is hidden only if a persistent profile
// exists, because first-time logins need a visible browser.
func New(ctx context.Context, cfg probe.Config, logger zerolog.Logger) (*Driver, error) {
	bin, ok := launcher.LookPath()
	if !ok {
		return nil, errors.New("browser mode needs Chrome or Chromium installed")
	}

	headless := cfg.UserDataDir != ""
	if cfg.Headless != nil {
		headless = *cfg.Headless
	}

	l := launcher.New().
		Bin(bin).
		Headless(headless).
		Leakless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-default-browser-check")
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	d := &Driver{
		cfg:         cfg,
		selectors:   resolveSelectors(cfg),
		logger:      logger.With().Str("component", "browser").Logger(),
		launcher:    l,
		ownsDataDir: cfg.UserDataDir == "",
	}
	d.setState(stateIdle)

	u, err := l.Launch()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to launch browser")
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrapf(err, "failed to attach to browser")
	}
	d.browser = b

	if err := d.open(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Driver) open(ctx context.Context) error {
	page, err := d.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return errors.Wrapf(err, "failed to open a browser tab")
	}
	d.page = page.Context(ctx)

	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: stealthScript}).Call(d.page); err != nil {
		d.logger.Warn().Err(err).Msg("could not install stealth script")
	}
	viewport := proto.EmulationSetDeviceMetricsOverride{Width: 1280, Height: 800, DeviceScaleFactor: 1}
	if err := viewport.Call(d.page); err != nil {
		d.logger.Warn().Err(err).Msg("could not set viewport")
	}

	d.logger.Info().Str("url", d.cfg.Endpoint).Msg("opening chat page")
	if err := d.page.Navigate(d.cfg.Endpoint); err != nil {
		return errors.Wrapf(err, "failed to open %s", d.cfg.Endpoint)
	}
	if err := d.page.WaitLoad(); err != nil {
		d.logger.Warn().Err(err).Msg("page load wait failed, continuing")
	}
	// Dynamic UIs keep mounting after onload.
	time.Sleep(d.extraWait())
	return nil
}

func (d *Driver) extraWait() time.Duration {
	if p := d.cfg.Profile; p != nil && p.ExtraWait > 0 {
		return p.ExtraWait
	}
	return navigateSettleWait
}

func (d *Driver) timeout() time.Duration {
	if d.cfg.Timeout > 0 {
		return d.cfg.Timeout
	}
	return responseTimeout
}

func (d *Driver) setState(s driverState) {
	d.state = s
	d.logger.Debug().Str("state", string(s)).Msg("driver state")
}

// SendMessage types message into the page's composer, submits it and
// returns the reply once the page settles. A deadline on ctx shortens the
// default two minute wait. A reply that was still streaming when the
// deadline passed is returned as-is rather than discarded.
func (d *Driver) SendMessage(ctx context.Context, message string) (string, error) {
	if d.page == nil {
		return "", errors.New("browser is not connected")
	}

	d.setState(stateIdle)
	field, err := d.findInput(ctx)
	if err != nil {
		return "", err
	}
	d.setState(stateInput)

	// Count before submitting so the new message is detectable even when
	// the selector also matches older ones.
	initial := d.responseCount()

	if err := d.typeMessage(field, message); err != nil {
		return "", errors.Wrapf(err, "failed to enter message")
	}
	if err := d.submit(); err != nil {
		return "", errors.Wrapf(err, "failed to submit message")
	}
	d.setState(stateSubmitted)

	deadline := time.Now().Add(d.timeout())
	if t, ok := ctx.Deadline(); ok && t.Before(deadline) {
		deadline = t
	}

	d.setState(stateAwaiting)
	if !d.awaitNewResponse(ctx, initial, deadline) {
		d.setState(stateTimedOut)
		return "", &ResponseTimeoutError{Wait: d.timeout()}
	}

	w := &settleWaiter{
		probe:  pageSignals{d},
		sleep:  time.Sleep,
		onTick: func() { d.clickApprovals() },
		logger: d.logger,
	}
	text, settled := w.run(ctx, deadline)
	if settled {
		d.setState(stateSettled)
	} else {
		d.setState(stateTimedOut)
	}
	if text == "" {
		return "", &ResponseTimeoutError{Wait: d.timeout()}
	}

	// Approval prompts can appear after the text stops changing too.
	d.clickApprovals()
	time.Sleep(d.extraWait())
	return text, nil
}

// findInput sweeps the input candidates until one yields a visible
// editable element. SPAs mount the composer late, so the sweep retries
// for a few seconds before giving up with a debug screenshot.
func (d *Driver) findInput(ctx context.Context) (*rod.Element, error) {
	deadline := time.Now().Add(inputSweepTimeout)
	for {
		for _, sel := range d.selectors.input {
			els, err := d.page.Elements(sel)
			if err != nil {
				continue
			}
			for _, el := range els {
				if visible(el) && editable(el) {
					d.logger.Debug().Str("selector", sel).Msg("found chat input")
					return el, nil
				}
			}
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		time.Sleep(inputSweepInterval)
	}
	shot := d.debugScreenshot("no-input")
	return nil, &ElementNotFoundError{Role: "input", Screenshot: shot}
}

func (d *Driver) typeMessage(field *rod.Element, message string) error {
	if err := field.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	// Replace whatever an earlier aborted attempt left behind.
	if err := field.SelectAllText(); err != nil {
		d.logger.Debug().Err(err).Msg("select-all failed, appending instead")
	}
	if err := field.Input(message); err != nil {
		// Editors that intercept input events still accept keystrokes one
		// character at a time.
		d.logger.Debug().Err(err).Msg("element input failed, typing through the keyboard")
		for _, r := range message {
			if err := d.page.InsertText(string(r)); err != nil {
				return err
			}
		}
	}
	// Give reactive frameworks a beat to register the value.
	time.Sleep(300 * time.Millisecond)
	return nil
}

// submit clicks the first usable send control, or presses Enter in the
// focused composer when the page has no button at all.
func (d *Driver) submit() error {
	for _, sel := range d.selectors.submit {
		els, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if !visible(el) || !enabled(el) {
				continue
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				d.logger.Debug().Str("selector", sel).Err(err).Msg("send click failed")
				continue
			}
			d.logger.Debug().Str("selector", sel).Msg("clicked send")
			time.Sleep(submitRegisterWait)
			return nil
		}
	}
	d.logger.Debug().Msg("no send button found, pressing enter")
	if err := d.page.Keyboard.Type(input.Enter); err != nil {
		return err
	}
	time.Sleep(submitRegisterWait)
	return nil
}

// awaitNewResponse polls until a response element beyond the initial
// count renders. Approval prompts are pressed while waiting since some
// agents ask for consent before answering at all.
func (d *Driver) awaitNewResponse(ctx context.Context, initial int, deadline time.Time) bool {
	lastApproval := time.Now()
	for {
		if d.responseCount() > initial {
			return true
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			return false
		}
		if time.Since(lastApproval) >= approvalInterval {
			d.clickApprovals()
			lastApproval = time.Now()
		}
		time.Sleep(responsePollInterval)
	}
}

// responseCount counts rendered responses using the first selector that
// matches anything, so overlapping selector guesses cannot double count.
func (d *Driver) responseCount() int {
	for _, sel := range d.selectors.response {
		els, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		if len(els) > 0 {
			return len(els)
		}
	}
	return 0
}

func (d *Driver) latestResponseText() string {
	for _, sel := range d.selectors.response {
		els, err := d.page.Elements(sel)
		if err != nil || len(els) == 0 {
			continue
		}
		text, err := els[len(els)-1].Text()
		if err != nil {
			continue
		}
		return strings.TrimSpace(text)
	}
	return ""
}

// submitReady reports whether a send control is enabled again. Chat UIs
// disable it while the model is generating, so re-enablement corroborates
// that the reply is finished.
func (d *Driver) submitReady() bool {
	for _, sel := range d.selectors.submit {
		els, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if enabled(el) {
				return true
			}
		}
	}
	return false
}

func (d *Driver) loading() bool {
	for _, sel := range loadingSelectors {
		els, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible(el) {
				return true
			}
		}
	}
	return false
}

// pageSignals feeds live page state to the settle waiter.
type pageSignals struct{ d *Driver }

func (p pageSignals) LatestText() string { return p.d.latestResponseText() }
func (p pageSignals) SubmitReady() bool  { return p.d.submitReady() }
func (p pageSignals) Loading() bool      { return p.d.loading() }

// LoginRequired reports whether the page still hides its composer, which
// for hosted UIs means an auth wall.
func (d *Driver) LoginRequired() bool {
	if d.page == nil {
		return true
	}
	if p := d.cfg.Profile; p != nil && !p.LoginRequired {
		return false
	}
	return !d.hasUsableInput()
}

func (d *Driver) hasUsableInput() bool {
	for _, sel := range d.selectors.input {
		els, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible(el) && editable(el) {
				return true
			}
		}
	}
	return false
}

// WaitForLogin blocks until the user signs in through the browser window
// and the composer appears. Cancel ctx to give up.
func (d *Driver) WaitForLogin(ctx context.Context) error {
	if d.page == nil {
		return errors.New("browser is not connected")
	}
	if d.hasUsableInput() {
		d.logger.Info().Msg("already signed in")
		return nil
	}
	d.logger.Info().Msg("waiting for sign-in, complete it in the browser window")
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "gave up waiting for sign-in")
		case <-time.After(loginPollInterval):
		}
		if d.hasUsableInput() {
			d.logger.Info().Msg("sign-in detected")
			return nil
		}
	}
}

// Reset reloads the page so hosted UIs drop their conversation state.
func (d *Driver) Reset(ctx context.Context) error {
	if d.page == nil {
		return errors.New("browser is not connected")
	}
	if err := d.page.Reload(); err != nil {
		return errors.Wrapf(err, "failed to reload page")
	}
	if err := d.page.WaitLoad(); err != nil {
		d.logger.Warn().Err(err).Msg("reload wait failed, continuing")
	}
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "interrupted while the page was settling")
	case <-time.After(d.extraWait()):
	}
	return nil
}

// Screenshot captures the current viewport to path as a PNG.
func (d *Driver) Screenshot(path string) error {
	if d.page == nil {
		return errors.New("browser is not connected")
	}
	data, err := d.page.Screenshot(false, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to capture screenshot")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	d.logger.Info().Str("path", path).Msg("saved screenshot")
	return nil
}

func (d *Driver) debugScreenshot(reason string) string {
	if d.page == nil {
		return ""
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("anychat-%s-%s.png", reason, time.Now().Format("20060102-150405")))
	if err := d.Screenshot(path); err != nil {
		d.logger.Debug().Err(err).Msg("debug screenshot failed")
		return ""
	}
	return path
}

// Close shuts the browser down. Safe to call more than once.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.page != nil {
		if err := d.page.Close(); err != nil {
			d.logger.Debug().Err(err).Msg("page close failed")
		}
	}
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launcher != nil && d.ownsDataDir {
		d.launcher.Cleanup()
	}
	if err != nil {
		return errors.Wrapf(err, "failed to close browser")
	}
	return nil
}

func visible(el *rod.Element) bool {
	v, err := el.Visible()
	return err == nil && v
}

func enabled(el *rod.Element) bool {
	res, err := el.Eval(`() => !this.disabled && this.getAttribute("aria-disabled") !== "true"`)
	return err == nil && res.Value.Bool()
}

func editable(el *rod.Element) bool {
	res, err := el.Eval(`() => {
		if (this.disabled || this.readOnly) { return false }
		if (this.isContentEditable) { return true }
		const tag = this.tagName.toLowerCase()
		return tag === "textarea" || tag === "input"
	}`)
	return err == nil && res.Value.Bool()
}
