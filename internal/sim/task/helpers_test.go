package task

import (
	"testing"

	"tutorsim.ai/internal/sim/world"
)

type probeTask struct {
	typ *Type
	max int
}

func (p *probeTask) Type() *Type  { return p.typ }
func (p *probeTask) MaxTime() int { return p.max }

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "test", StartDir: world.North, BoundaryR: 5})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func newType(t *testing.T, name string) *Type {
	t.Helper()
	typ, err := NewRegistry().Define(name)
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	return typ
}

func mustHandle(t *testing.T, typ *Type, trig Trigger, r Reaction) {
	t.Helper()
	if err := typ.Handle(trig, r); err != nil {
		t.Fatalf("Handle(%s): %v", trig, err)
	}
}

func newEpisode(t *testing.T, typ *Type, w World, maxTime int) *Episode {
	t.Helper()
	ep, err := NewEpisode(&probeTask{typ: typ, max: maxTime}, w)
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	return ep
}

// running returns an episode that has been through Init and Start.
func running(t *testing.T, typ *Type, w World, maxTime int) *Episode {
	t.Helper()
	ep := newEpisode(t, typ, w, maxTime)
	if res := ep.Init(); res.Err() != nil || res.Terminated {
		t.Fatalf("Init: terminated=%v err=%v", res.Terminated, res.Err())
	}
	if res := ep.Start(); res.Err() != nil || res.Terminated {
		t.Fatalf("Start: terminated=%v err=%v", res.Terminated, res.Err())
	}
	return ep
}

func noop(*Context, *Event) error { return nil }
