package locks

import (
	"reflect"
	"testing"
)

func TestCollectAndSet(t *testing.T) {
	r := Map{"b": true}
	infs := []string{"a", "b", "c"}

	states := Collect(r, infs)
	if !reflect.DeepEqual(states, States{false, true, false}) {
		t.Fatalf("unexpected states %v", states)
	}

	if !states.Set(infs, "c", true) {
		t.Error("expected c to be found")
	}
	if states.Set(infs, "missing", true) {
		t.Error("expected missing influence to be reported")
	}
	if got := states.Locked(infs); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("Locked: got %v", got)
	}

	if got := Collect(nil, infs); !reflect.DeepEqual(got, States{false, false, false}) {
		t.Errorf("nil registry: got %v", got)
	}
}

func TestLookupIsLive(t *testing.T) {
	r := Map{}
	lookup := Lookup(r)
	if lookup("a") {
		t.Fatal("expected a unlocked")
	}
	r["a"] = true
	if !lookup("a") {
		t.Error("lookup must see lock changes made after it was created")
	}
	if Lookup(nil)("a") {
		t.Error("nil registry must lock nothing")
	}
}

func TestSnapshot(t *testing.T) {
	r := Map{"a": true}
	got := Snapshot(r, []string{"a", "b"})
	if !reflect.DeepEqual(got, map[string]bool{"a": true, "b": false}) {
		t.Errorf("unexpected states %v", got)
	}
	r["b"] = true
	if got["b"] {
		t.Error("a snapshot must not follow later changes")
	}
	if Snapshot(nil, []string{"a"})["a"] {
		t.Error("nil registry must lock nothing")
	}
}
