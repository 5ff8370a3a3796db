package audit

import (
	"errors"
	"sync"
	"testing"

	"github.com/warpVIT1/tarot-booking-app/internal/events"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *memorySink) Record(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	a := &memorySink{err: errors.New("broken")}
	b := &memorySink{}
	d := NewDispatcher(a, b)

	d.Dispatch(Event{Action: "booking_created", EntityID: "b1"})
	d.Dispatch(Event{Action: "booking_confirmed", EntityID: "b1"})
	d.Close()

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Fatalf("expected both sinks to see 2 events, got %d and %d", len(a.events), len(b.events))
	}
	if b.events[1].Action != "booking_confirmed" {
		t.Errorf("events out of order: %+v", b.events)
	}
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	s := &memorySink{}
	d := NewDispatcher(s)
	d.Close()
	d.Close()

	d.Dispatch(Event{Action: "late"})
	if len(s.events) != 0 {
		t.Errorf("expected no events after close, got %d", len(s.events))
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Event{Action: "ignored"})
}

func TestBusSinkPublishes(t *testing.T) {
	rec := &events.Recorder{}
	d := NewDispatcher(BusSink{Bus: rec}, LogSink{})
	d.Dispatch(Event{Action: "slot_created", Entity: "slot", EntityID: "s1"})
	d.Close()

	if got := rec.Subjects(); len(got) != 1 || got[0] != events.AuditRecorded {
		t.Errorf("unexpected subjects %v", got)
	}
}
