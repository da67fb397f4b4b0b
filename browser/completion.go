package browser

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	settleSampleInterval = time.Second

	// Samples the newest message must stay unchanged before it counts as
	// finished. Three suffice when a second signal corroborates, five when
	// text stability is all we have.
	settleStableSamples   = 3
	settleFallbackSamples = settleStableSamples + 2
)

// signalProbe exposes the page signals completion detection reads: the
// text of the newest response, whether the send control is usable again
// and whether any loading indicator is still showing.
type signalProbe interface {
	LatestText() string
	SubmitReady() bool
	Loading() bool
}

// settleWaiter decides when a streaming response has finished rendering.
// sleep and onTick are injectable so the sampling loop can be driven
// without a page or a clock.
type settleWaiter struct {
	probe  signalProbe
	sleep  func(time.Duration)
	onTick func()
	logger zerolog.Logger
}

// run samples the page once a second until the response settles or the
// deadline passes. An empty sample never counts as stable, so a page that
// renders the message container before its text cannot settle early. On
// deadline it returns whatever text was last seen with settled=false.
func (w *settleWaiter) run(ctx context.Context, deadline time.Time) (string, bool) {
	var last string
	stable := 0
	for {
		if w.onTick != nil {
			w.onTick()
		}
		cur := w.probe.LatestText()
		if cur != "" && cur == last {
			stable++
		} else {
			stable = 0
		}
		last = cur

		if stable >= settleStableSamples && (w.probe.SubmitReady() || !w.probe.Loading()) {
			w.logger.Debug().Int("stable_samples", stable).Msg("response settled")
			return cur, true
		}
		if stable >= settleFallbackSamples {
			w.logger.Debug().Int("stable_samples", stable).Msg("response settled on text stability alone")
			return cur, true
		}

		if ctx.Err() != nil || !time.Now().Before(deadline) {
			w.logger.Debug().Msg("gave up waiting for the response to settle")
			return cur, false
		}
		w.sleep(settleSampleInterval)
	}
}
