package browser

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type scriptedProbe struct {
	texts   []string
	next    int
	ready   bool
	loading bool
}

func (p *scriptedProbe) LatestText() string {
	if p.next >= len(p.texts) {
		return p.texts[len(p.texts)-1]
	}
	t := p.texts[p.next]
	p.next++
	return t
}

func (p *scriptedProbe) SubmitReady() bool { return p.ready }
func (p *scriptedProbe) Loading() bool     { return p.loading }

func newTestWaiter(p *scriptedProbe, ticks *int) *settleWaiter {
	return &settleWaiter{
		probe:  p,
		sleep:  func(time.Duration) {},
		onTick: func() { *ticks++ },
		logger: zerolog.Nop(),
	}
}

func TestSettleWithCorroboration(t *testing.T) {
	p := &scriptedProbe{
		texts: []string{"Hel", "Hello world", "Hello world", "Hello world", "Hello world"},
		ready: true,
	}
	ticks := 0
	w := newTestWaiter(p, &ticks)

	text, settled := w.run(context.Background(), time.Now().Add(time.Hour))
	if !settled {
		t.Fatal("Expected response to settle")
	}
	if text != "Hello world" {
		t.Errorf("Expected 'Hello world', got '%s'", text)
	}
	if ticks != 5 {
		t.Errorf("Expected settle after 5 samples, got %d", ticks)
	}
}

func TestSettleOnStabilityAlone(t *testing.T) {
	p := &scriptedProbe{
		texts:   []string{"typing", "done", "done", "done", "done", "done", "done"},
		ready:   false,
		loading: true,
	}
	ticks := 0
	w := newTestWaiter(p, &ticks)

	text, settled := w.run(context.Background(), time.Now().Add(time.Hour))
	if !settled {
		t.Fatal("Expected response to settle on stability alone")
	}
	if text != "done" {
		t.Errorf("Expected 'done', got '%s'", text)
	}
	if ticks != 7 {
		t.Errorf("Expected settle after 7 samples without corroboration, got %d", ticks)
	}
}

func TestEmptySamplesNeverStabilize(t *testing.T) {
	p := &scriptedProbe{
		texts: []string{"", "", "", "answer", "answer", "answer", "answer"},
		ready: true,
	}
	ticks := 0
	w := newTestWaiter(p, &ticks)

	text, settled := w.run(context.Background(), time.Now().Add(time.Hour))
	if !settled {
		t.Fatal("Expected response to settle once text appeared")
	}
	if text != "answer" {
		t.Errorf("Expected 'answer', got '%s'", text)
	}
	if ticks != 7 {
		t.Errorf("Expected empty samples to be ignored and settle at sample 7, got %d", ticks)
	}
}

func TestDeadlineReturnsPartialText(t *testing.T) {
	p := &scriptedProbe{
		texts: []string{"still streaming"},
		ready: true,
	}
	ticks := 0
	w := newTestWaiter(p, &ticks)

	text, settled := w.run(context.Background(), time.Now().Add(-time.Second))
	if settled {
		t.Error("Expected waiter to report the deadline, not a settle")
	}
	if text != "still streaming" {
		t.Errorf("Expected the partial text back, got '%s'", text)
	}
	if ticks != 1 {
		t.Errorf("Expected a single sample past the deadline, got %d", ticks)
	}
}

func TestCancelledContextStopsSampling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedProbe{texts: []string{"partial"}, ready: true}
	ticks := 0
	w := newTestWaiter(p, &ticks)

	text, settled := w.run(ctx, time.Now().Add(time.Hour))
	if settled {
		t.Error("Expected cancellation, not a settle")
	}
	if text != "partial" {
		t.Errorf("Expected 'partial', got '%s'", text)
	}
	if ticks != 1 {
		t.Errorf("Expected a single sample after cancellation, got %d", ticks)
	}
}
