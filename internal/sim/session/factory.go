package session

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/tasks"
	"tutorsim.ai/internal/sim/tuning"
	"tutorsim.ai/internal/sim/world"
)

// Factory opens one session, with its own world, per learner.
type Factory struct {
	tuning    tuning.Tuning
	content   *catalogs.Catalogs
	names     []string
	recorders []Recorder
	log       *log.Logger
	now       func() time.Time

	opened atomic.Int64
}

type FactoryOption func(*Factory)

func WithFactoryLogger(l *log.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

func WithFactoryRecorders(r ...Recorder) FactoryOption {
	return func(f *Factory) { f.recorders = append(f.recorders, r...) }
}

func WithFactoryClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFactory checks that every curriculum task exists. An empty curriculum
// means every registered task.
func NewFactory(tu tuning.Tuning, content *catalogs.Catalogs, opts ...FactoryOption) (*Factory, error) {
	if err := tu.Validate(); err != nil {
		return nil, fmt.Errorf("session factory: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("session factory: nil content")
	}
	names := tu.Tasks
	if len(names) == 0 {
		names = tasks.Names()
	}
	for _, n := range names {
		if _, ok := tasks.Registry.Lookup(n); !ok {
			return nil, fmt.Errorf("session factory: unknown task %q", n)
		}
	}
	f := &Factory{
		tuning:  tu,
		content: content,
		names:   append([]string(nil), names...),
		log:     log.New(io.Discard, "", 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Factory) Tuning() tuning.Tuning       { return f.tuning }
func (f *Factory) Content() *catalogs.Catalogs { return f.content }
func (f *Factory) Tasks() []string             { return append([]string(nil), f.names...) }

// Open builds a fresh world and a session over it. The n-th session opened
// draws its tasks from seed+n, so a server run is reproducible given the
// connection order.
func (f *Factory) Open(learner string) (*Session, *world.World, error) {
	n := f.opened.Add(1) - 1
	id := uuid.NewString()
	w, err := world.New(f.tuning.WorldConfig(id))
	if err != nil {
		return nil, nil, err
	}
	r := rand.New(rand.NewSource(f.tuning.Seed + n))
	picker, err := NewRandomPicker(r, f.names)
	if err != nil {
		return nil, nil, err
	}
	s, err := New(Config{
		ID:       id,
		Learner:  learner,
		World:    w,
		Picker:   picker,
		Env:      tasks.Env{Rand: r, Content: f.content, Timing: tasks.Timing{Char: f.tuning.TimeChar}},
		TimeChar: f.tuning.TimeChar,
	}, WithLogger(f.log), WithRecorder(f.recorders...), WithClock(f.now))
	if err != nil {
		return nil, nil, err
	}
	return s, w, nil
}
