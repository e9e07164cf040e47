package worldtest

import (
	"sync"
	"testing"

	"tutorsim.ai/internal/learner"
	"tutorsim.ai/internal/sim/world"
)

func TestSharedWorld_ConcurrentSessions(t *testing.T) {
	w, err := world.New(world.WorldConfig{ID: "shared", StartDir: world.North, BoundaryR: 8})
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	hs := []*Harness{
		NewHarnessWithWorld(t, w, 1, "turning", "verb"),
		NewHarnessWithWorld(t, w, 2, "moving", "association"),
	}
	for _, h := range hs {
		h.Begin()
	}

	var wg sync.WaitGroup
	for _, h := range hs {
		wg.Add(1)
		go func(h *Harness) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, err := h.S.Say(learner.Idle); err != nil {
					t.Errorf("Say: %v", err)
					return
				}
			}
		}(h)
	}
	wg.Wait()

	for i, h := range hs {
		if len(h.Rec.Outcomes()) == 0 {
			t.Fatalf("session %d never finished an episode", i)
		}
	}
}
