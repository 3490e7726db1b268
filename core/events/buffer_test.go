package events

import (
	"testing"

	"sweeper/core/types"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string   { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

type recorder struct{ seen []string }

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt.EventType()) }

func newTestEvent(name string) testEvent {
	return testEvent{evt: &types.Event{Type: name, Attributes: map[string]string{}}}
}

func TestBufferFlushPreservesOrder(t *testing.T) {
	var buf Buffer
	buf.Emit(newTestEvent("a"))
	buf.Emit(newTestEvent("b"))
	buf.Emit(nil)

	rec := &recorder{}
	buf.Flush(rec)
	if len(rec.seen) != 2 || rec.seen[0] != "a" || rec.seen[1] != "b" {
		t.Fatalf("unexpected flush order: %v", rec.seen)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not emptied: %d", buf.Len())
	}
}

func TestMultiAndCanonical(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, nil, b}.Emit(newTestEvent("x"))
	if len(a.seen) != 1 || len(b.seen) != 1 {
		t.Fatalf("fan-out failed: %v %v", a.seen, b.seen)
	}
	if Canonical(newTestEvent("x")) == nil {
		t.Fatalf("expected canonical payload")
	}
	if Canonical(plainEvent{}) != nil {
		t.Fatalf("plain events have no payload")
	}
}

type plainEvent struct{}

func (plainEvent) EventType() string { return "plain" }
