package realtime

import (
	"reflect"
	"testing"
)

func TestPresenceRegisterUnregister(t *testing.T) {
	p := NewPresence()

	if !p.Register("u1") {
		t.Fatalf("first register should report a change")
	}
	if p.Register("u1") {
		t.Fatalf("second connection for the same user should not report a change")
	}
	p.Register("u2")

	got := p.Snapshot()
	want := []string{"u1", "u2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}

	if p.Unregister("u1") {
		t.Fatalf("u1 still has one connection, unregister should not report offline")
	}
	if !p.Unregister("u1") {
		t.Fatalf("last unregister should report offline")
	}
	if p.IsOnline("u1") {
		t.Fatalf("u1 should be offline")
	}
}

func TestPresenceUnregisterIdempotent(t *testing.T) {
	p := NewPresence()
	p.Register("u1")
	p.Unregister("u1")

	if p.Unregister("u1") {
		t.Fatalf("unregister of an absent user must be a no-op")
	}
	if got := p.Snapshot(); len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty", got)
	}
}

func TestPresenceSnapshotSorted(t *testing.T) {
	p := NewPresence()
	for _, id := range []string{"zeta", "alpha", "mike"} {
		p.Register(id)
	}
	got := p.Snapshot()
	want := []string{"alpha", "mike", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot = %v, want %v", got, want)
	}
}
