// Package session drives consecutive task episodes for one learner over a
// text channel, charging simulated time for every character exchanged.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorsim.ai/internal/sim/task"
	"tutorsim.ai/internal/sim/tasks"
	"tutorsim.ai/internal/sim/world"
)

var (
	ErrClosed     = errors.New("session closed")
	ErrNotStarted = errors.New("session not started")
)

// maxImmediateEnds bounds consecutive episodes that terminate before the
// learner gets to speak, e.g. content whose Init always faults.
const maxImmediateEnds = 16

type Kind string

const (
	KindEpisode     Kind = "episode"
	KindInstruction Kind = "instruction"
	KindFeedback    Kind = "feedback"
	KindWorld       Kind = "world"
	KindReward      Kind = "reward"
)

// Outbound is one message for the learner.
type Outbound struct {
	Kind      Kind
	EpisodeID string

	// KindEpisode
	Task    string
	MaxTime int

	// KindInstruction, KindFeedback, KindWorld
	Text string

	// KindReward
	Reward  int
	Cause   string
	Elapsed int
}

type Config struct {
	ID       string
	Learner  string
	World    *world.World
	Picker   Picker
	Env      tasks.Env
	TimeChar int
}

type Option func(*Session)

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithRecorder(r ...Recorder) Option {
	return func(s *Session) { s.recs = append(s.recs, r...) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

type Session struct {
	id       string
	learner  string
	world    *world.World
	picker   Picker
	env      tasks.Env
	timeChar int
	log      *log.Logger
	recs     []Recorder
	now      func() time.Time

	mu       sync.Mutex
	ep       *task.Episode
	ended    bool
	started  time.Time
	episodes int
	closed   bool
}

func New(cfg Config, opts ...Option) (*Session, error) {
	if cfg.World == nil {
		return nil, errors.New("session: nil world")
	}
	if cfg.Picker == nil {
		return nil, errors.New("session: nil picker")
	}
	if cfg.TimeChar <= 0 {
		return nil, fmt.Errorf("session: time_char must be > 0 (got %d)", cfg.TimeChar)
	}
	s := &Session{
		id:       cfg.ID,
		learner:  cfg.Learner,
		world:    cfg.World,
		picker:   cfg.Picker,
		env:      cfg.Env,
		timeChar: cfg.TimeChar,
		log:      log.New(io.Discard, "", 0),
		now:      time.Now,
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Learner() string { return s.learner }

// Episodes is the number of episodes begun so far.
func (s *Session) Episodes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episodes
}

// Current summarizes the running episode.
func (s *Session) Current() (task.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ep == nil {
		return task.Summary{}, false
	}
	return s.ep.Summary(), true
}

// Begin starts the first episode.
func (s *Session) Begin() ([]Outbound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.ep != nil {
		return nil, errors.New("session already begun")
	}
	var out []Outbound
	err := s.nextLocked(&out)
	return out, err
}

// Say handles one complete learner utterance.
func (s *Session) Say(text string) ([]Outbound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.ep == nil {
		return nil, ErrNotStarted
	}

	var out []Outbound
	// The utterance costs time before the teacher hears it; if that runs the
	// budget out, it is never delivered.
	s.chargeLocked(&out, len(text))
	if !s.ended {
		spoken := 0
		if reply, ok := s.world.Interpret(text); ok {
			out = append(out, Outbound{Kind: KindWorld, EpisodeID: s.ep.ID(), Text: reply})
			spoken += len(reply)
		}
		spoken += s.applyLocked(&out, text, KindFeedback, s.ep.Message(text))
		if !s.ended {
			spoken += s.applyLocked(&out, text, KindFeedback, s.ep.Tick())
		}
		if !s.ended {
			s.chargeLocked(&out, spoken)
		}
	}
	if s.ended {
		if err := s.nextLocked(&out); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Close aborts the running episode. Further calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ep != nil && !s.ended {
		var out []Outbound
		s.applyLocked(&out, "", KindFeedback, s.ep.Abort())
	}
	return nil
}

// nextLocked starts episodes until one is running and waiting for the
// learner.
func (s *Session) nextLocked(out *[]Outbound) error {
	for i := 0; i < maxImmediateEnds; i++ {
		name := s.picker.Next()
		t, err := tasks.New(name, s.env)
		if err != nil {
			return err
		}
		ep, err := task.NewEpisode(t, s.world, task.WithLogger(s.log))
		if err != nil {
			return err
		}
		s.ep, s.ended, s.started = ep, false, s.now()
		s.episodes++
		*out = append(*out, Outbound{Kind: KindEpisode, EpisodeID: ep.ID(), Task: name, MaxTime: ep.MaxTime()})
		info := EpisodeInfo{
			SessionID: s.id,
			Learner:   s.learner,
			EpisodeID: ep.ID(),
			Task:      name,
			MaxTime:   ep.MaxTime(),
			At:        s.started,
		}
		for _, r := range s.recs {
			r.EpisodeStarted(info)
		}
		s.log.Printf("session=%s episode=%s task=%s begin max_time=%d", s.id, ep.ID(), name, ep.MaxTime())

		spoken := s.applyLocked(out, "", KindInstruction, ep.Init())
		if !s.ended {
			spoken += s.applyLocked(out, "", KindInstruction, ep.Start())
		}
		if !s.ended {
			s.chargeLocked(out, spoken)
		}
		if !s.ended {
			return nil
		}
	}
	return fmt.Errorf("session: %d consecutive episodes ended before the learner could answer", maxImmediateEnds)
}

// chargeLocked spends the time for n characters on the channel.
func (s *Session) chargeLocked(out *[]Outbound, n int) {
	if n == 0 {
		return
	}
	s.applyLocked(out, "", KindFeedback, s.ep.Advance(n*s.timeChar))
}

// applyLocked records one call result, emits its feedback and, if the
// episode ended, its reward notice. It returns the length of the feedback
// emitted.
func (s *Session) applyLocked(out *[]Outbound, utterance string, kind Kind, res task.Result) int {
	if len(res.Delivered) > 0 || len(res.Violations) > 0 {
		rec := dispatchRecord(res)
		rec.SessionID, rec.EpisodeID, rec.Task = s.id, s.ep.ID(), s.ep.TaskName()
		rec.Utterance = utterance
		rec.At = s.now()
		for _, r := range s.recs {
			r.Dispatched(rec)
		}
	}
	spoken := 0
	if res.Feedback != "" {
		*out = append(*out, Outbound{Kind: kind, EpisodeID: s.ep.ID(), Text: res.Feedback})
		spoken = len(res.Feedback)
	}
	if res.Terminated && !s.ended {
		s.ended = true
		s.finishLocked(out)
	}
	return spoken
}

func (s *Session) finishLocked(out *[]Outbound) {
	sum := s.ep.Summary()
	*out = append(*out, Outbound{
		Kind:      KindReward,
		EpisodeID: sum.ID,
		Reward:    sum.Reward,
		Cause:     sum.Cause.String(),
		Elapsed:   sum.Elapsed,
	})
	o := Outcome{
		SessionID:  s.id,
		Learner:    s.learner,
		EpisodeID:  sum.ID,
		Task:       sum.Task,
		Cause:      sum.Cause.String(),
		Reward:     sum.Reward,
		Rewarded:   sum.Rewarded,
		Elapsed:    sum.Elapsed,
		MaxTime:    sum.MaxTime,
		Faults:     sum.Faults,
		Violations: sum.Violations,
		Started:    s.started,
		Ended:      s.now(),
	}
	for _, r := range s.recs {
		r.EpisodeEnded(o)
	}
	s.log.Printf("session=%s episode=%s task=%s end cause=%s reward=%d elapsed=%d/%d",
		s.id, sum.ID, sum.Task, o.Cause, sum.Reward, sum.Elapsed, sum.MaxTime)
}
