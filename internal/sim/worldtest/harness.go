package worldtest

import (
	"math/rand"
	"sync"
	"testing"

	"tutorsim.ai/internal/learner"
	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/session"
	"tutorsim.ai/internal/sim/tasks"
	"tutorsim.ai/internal/sim/world"
)

// Harness is a small black-box test helper for driving a learner session
// via exported APIs:
// - Begin()/Say() forward to the session and keep its outbound messages
// - Run() lets a scripted learner talk to the session
// - the recorder keeps every episode outcome
//
// It intentionally avoids touching engine internals so tests can live
// outside the task package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World
	S    *session.Session

	Rec *Recorder
	Out []session.Outbound
}

func NewHarness(t *testing.T, cfg world.WorldConfig, seed int64, names ...string) *Harness {
	t.Helper()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, seed, names...)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed
// world, e.g. one shared by several sessions.
func NewHarnessWithWorld(t *testing.T, w *world.World, seed int64, names ...string) *Harness {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	picker, err := session.NewSequencePicker(names...)
	if err != nil {
		t.Fatalf("picker: %v", err)
	}
	rec := &Recorder{}
	s, err := session.New(session.Config{
		Learner:  "harness",
		World:    w,
		Picker:   picker,
		Env:      tasks.Env{Rand: rand.New(rand.NewSource(seed)), Content: cats, Timing: tasks.Timing{Char: 32}},
		TimeChar: 32,
	}, session.WithRecorder(rec))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, W: w, S: s, Rec: rec}
}

func (h *Harness) Begin() []session.Outbound {
	h.T.Helper()
	out, err := h.S.Begin()
	if err != nil {
		h.T.Fatalf("Begin: %v", err)
	}
	h.Out = out
	return out
}

func (h *Harness) Say(text string) []session.Outbound {
	h.T.Helper()
	out, err := h.S.Say(text)
	if err != nil {
		h.T.Fatalf("Say(%q): %v", text, err)
	}
	h.Out = out
	return out
}

// Run starts the session and lets l talk until episodes have ended or
// maxUtterances were said.
func (h *Harness) Run(l *learner.Learner, episodes, maxUtterances int) []session.Outcome {
	h.T.Helper()
	hear := func(out []session.Outbound) {
		for _, o := range out {
			l.Hear(string(o.Kind), o.Text)
		}
	}
	hear(h.Begin())
	for i := 0; i < maxUtterances && len(h.Rec.Outcomes()) < episodes; i++ {
		hear(h.Say(l.Next()))
	}
	return h.Rec.Outcomes()
}

// Recorder keeps everything a session reports.
type Recorder struct {
	mu         sync.Mutex
	started    []session.EpisodeInfo
	dispatched []session.DispatchRecord
	ended      []session.Outcome
}

func (r *Recorder) EpisodeStarted(e session.EpisodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, e)
}

func (r *Recorder) Dispatched(d session.DispatchRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, d)
}

func (r *Recorder) EpisodeEnded(o session.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, o)
}

func (r *Recorder) Outcomes() []session.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Outcome(nil), r.ended...)
}

func (r *Recorder) Dispatches() []session.DispatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.DispatchRecord(nil), r.dispatched...)
}
