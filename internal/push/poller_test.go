package push

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/events"
)

type sliceSource struct {
	batches [][][]byte
}

func (s *sliceSource) Drain() [][]byte {
	if len(s.batches) == 0 {
		return nil
	}
	next := s.batches[0]
	s.batches = s.batches[1:]
	return next
}

type recordingApplier struct {
	applied []device.PushEvent
}

func (r *recordingApplier) ApplyPush(ev device.PushEvent) (device.State, bool) {
	if !ev.Recognized {
		return device.Blink, false
	}
	r.applied = append(r.applied, ev)
	return ev.State, true
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPollerAppliesRecognized(t *testing.T) {
	src := &sliceSource{batches: [][][]byte{{
		[]byte(`{"data":"{\"alert\":\"on\"}"}`),
		[]byte(`{"data":"{\"alert\":\"purple\"}"}`),
		[]byte(`garbage`),
		[]byte(`{"data":"{\"alert\":\"blink\"}"}`),
	}}}
	applier := &recordingApplier{}

	p := NewPoller(src, applier, nil, newTestLogger())

	if n := p.Poll(); n != 4 {
		t.Errorf("Poll() handled %d payloads, want 4", n)
	}
	if len(applier.applied) != 2 {
		t.Fatalf("applied %d events, want 2", len(applier.applied))
	}
	if applier.applied[0].State != device.On || applier.applied[1].State != device.Blink {
		t.Errorf("unexpected applied events %+v", applier.applied)
	}

	if n := p.Poll(); n != 0 {
		t.Errorf("second Poll() handled %d payloads, want 0", n)
	}
}

func TestPollerNilSource(t *testing.T) {
	p := NewPoller(nil, &recordingApplier{}, nil, newTestLogger())
	if n := p.Poll(); n != 0 {
		t.Errorf("Poll() = %d, want 0", n)
	}
}

func TestPollerPublishesOutcomes(t *testing.T) {
	bus := events.New()
	received := make(chan events.PushReceivedEvent, 3)
	unsub := bus.Subscribe(func(e events.PushReceivedEvent) {
		received <- e
	})
	defer unsub()

	src := &sliceSource{batches: [][][]byte{{
		[]byte(`{"data":"{\"alert\":\"off\"}"}`),
		[]byte(`{"data":"{\"alert\":\"purple\"}"}`),
		[]byte(`{}`),
	}}}
	p := NewPoller(src, &recordingApplier{}, bus, newTestLogger())
	p.Poll()

	want := []string{OutcomeApplied, OutcomeUnknownLabel, OutcomeMalformed}
	for i, outcome := range want {
		select {
		case e := <-received:
			if e.Outcome != outcome {
				t.Errorf("event %d outcome = %q, want %q", i, e.Outcome, outcome)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}
