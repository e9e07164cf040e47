package task

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"tutorsim.ai/internal/sim/world"
)

type Phase uint8

const (
	PhaseCreated Phase = iota
	PhaseInitialized
	PhaseRunning
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseInitialized:
		return "initialized"
	case PhaseRunning:
		return "running"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Cause records why an episode terminated.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseReward
	CauseTimeout
	CauseFault
	CauseAborted
)

func (c Cause) String() string {
	switch c {
	case CauseReward:
		return "reward"
	case CauseTimeout:
		return "timeout"
	case CauseFault:
		return "fault"
	case CauseAborted:
		return "aborted"
	default:
		return ""
	}
}

func (c Cause) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func ParseCause(s string) (Cause, error) {
	for c := CauseNone; c <= CauseAborted; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return CauseNone, fmt.Errorf("unknown cause %q", s)
}

// World is the part of the simulated world tasks may query and change.
//
// The engine reads State for StateChanged snapshots and never changes
// geometry itself. Implementations shared by concurrent episodes must
// serialize their own mutations.
type World interface {
	State() world.State
	PutEntity(p world.Vec, item string, visible, collectible bool) error
	AddItem(item string, delta int) error
	ClockwiseDirection(steps int) world.Direction
}

type Option func(*Episode)

func WithID(id string) Option {
	return func(ep *Episode) {
		if id != "" {
			ep.id = id
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(ep *Episode) {
		if l != nil {
			ep.log = l
		}
	}
}

// WithMaxTime overrides the task's own time budget.
func WithMaxTime(units int) Option {
	return func(ep *Episode) { ep.clock.max = units }
}

// Episode runs one task instance against one world from Init to
// termination. All entry points are safe for concurrent use; deliveries to
// one episode are serialized.
type Episode struct {
	mu sync.Mutex

	id    string
	task  Task
	typ   *Type
	world World
	log   *log.Logger

	static  []binding
	dynamic []binding

	state     State
	lastWorld world.State
	lastTask  State

	phase Phase
	cause Cause
	clock clock

	reward   int
	rewarded bool
	feedback string

	faults     []error
	violations []error
}

// NewEpisode seals the task's type and returns an episode in PhaseCreated.
func NewEpisode(t Task, w World, opts ...Option) (*Episode, error) {
	if t == nil {
		return nil, errors.New("new episode: nil task")
	}
	if w == nil {
		return nil, errors.New("new episode: nil world")
	}
	typ := t.Type()
	if typ == nil {
		return nil, fmt.Errorf("new episode: %T has no type", t)
	}
	ep := &Episode{
		id:    uuid.NewString(),
		task:  t,
		typ:   typ,
		world: w,
		log:   log.New(io.Discard, "", 0),
		state: State{},
		clock: clock{max: t.MaxTime()},
	}
	for _, opt := range opts {
		opt(ep)
	}
	if ep.clock.max <= 0 {
		return nil, fmt.Errorf("new episode: %s: max time must be > 0 (got %d)", typ.name, ep.clock.max)
	}
	ep.static = typ.seal()
	return ep, nil
}

// Result is what one entry-point call produced.
type Result struct {
	// Delivered lists the events dispatched, in order. A synthesized
	// timeout appears here in place of the event that was discarded.
	Delivered []Tag

	// Feedback is the last message set by a reaction during this call.
	Feedback string

	Terminated bool
	Cause      Cause
	// Reward is meaningful when Rewarded is set: the episode ended by
	// reward or timeout.
	Reward   int
	Rewarded bool
	Elapsed  int

	Faults     []error
	Violations []error
}

// Err joins the faults and violations of the call, or returns nil.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Faults)+len(r.Violations))
	errs = append(errs, r.Faults...)
	errs = append(errs, r.Violations...)
	return errors.Join(errs...)
}

// Init delivers the Init event: Created -> Initialized.
func (ep *Episode) Init() Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if ep.admit(&res, TagInit, PhaseCreated) {
		ep.deliver(&res, &Event{tag: TagInit})
		if ep.phase != PhaseTerminated {
			ep.phase = PhaseInitialized
		}
	}
	return ep.finish(res)
}

// Start delivers the Start event: Initialized -> Running. The world and task
// state at the end of Start are the baseline for the first Tick.
func (ep *Episode) Start() Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if ep.admit(&res, TagStart, PhaseInitialized) {
		ep.deliver(&res, &Event{tag: TagStart})
		if ep.phase != PhaseTerminated {
			ep.phase = PhaseRunning
			ep.lastWorld = ep.world.State()
			ep.lastTask = ep.state.Clone()
		}
	}
	return ep.finish(res)
}

// Message delivers one learner utterance. If the time budget is already
// used up, Timeout is delivered instead and the utterance is discarded.
func (ep *Episode) Message(text string) Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if ep.admit(&res, TagMessage, PhaseRunning) {
		msg := &Event{tag: TagMessage, text: text}
		if ep.clock.expired() {
			ep.deliver(&res, &Event{tag: TagTimeout}, msg)
		} else {
			ep.deliver(&res, msg)
		}
	}
	return ep.finish(res)
}

// Tick delivers StateChanged comparing the world and task state now with
// their values at the previous tick (or at Start).
func (ep *Episode) Tick() Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if !ep.admit(&res, TagStateChanged, PhaseRunning) {
		return ep.finish(res)
	}
	ev := &Event{
		tag:         TagStateChanged,
		worldBefore: ep.lastWorld,
		taskBefore:  ep.lastTask,
		worldAfter:  ep.world.State(),
		taskAfter:   ep.state.Clone(),
	}
	if ep.clock.expired() {
		ep.deliver(&res, &Event{tag: TagTimeout}, ev)
	} else {
		ep.deliver(&res, ev)
	}
	ep.lastWorld = ev.worldAfter
	ep.lastTask = ev.taskAfter
	return ep.finish(res)
}

// Advance adds simulated time. Reaching the budget delivers Timeout.
func (ep *Episode) Advance(units int) Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if !ep.admit(&res, 0, PhaseInitialized, PhaseRunning) {
		return ep.finish(res)
	}
	if units < 0 {
		ep.violate(&res, 0, fmt.Errorf("%w: %d", ErrNegativeTime, units))
		return ep.finish(res)
	}
	if ep.clock.advance(units) {
		ep.deliver(&res, &Event{tag: TagTimeout})
	}
	return ep.finish(res)
}

// Abort terminates a live episode with CauseAborted.
func (ep *Episode) Abort() Result {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var res Result
	if ep.admit(&res, 0, PhaseCreated, PhaseInitialized, PhaseRunning) {
		ep.terminate(CauseAborted)
	}
	return ep.finish(res)
}

// admit checks the lifecycle phase for an entry point. Deliveries to a
// terminated episode are no-ops flagged as violations.
func (ep *Episode) admit(res *Result, tag Tag, allowed ...Phase) bool {
	if ep.phase == PhaseTerminated {
		ep.violate(res, tag, ErrTerminated)
		return false
	}
	for _, p := range allowed {
		if ep.phase == p {
			return true
		}
	}
	what := "advance"
	if tag != 0 {
		what = tag.String()
	}
	ep.violate(res, tag, fmt.Errorf("%w: %s while %s", ErrOutOfOrder, what, ep.phase))
	return false
}

func (ep *Episode) violate(res *Result, tag Tag, err error) {
	v := &ContractViolation{Episode: ep.id, Event: tag, Err: err}
	ep.violations = append(ep.violations, v)
	if res != nil {
		res.Violations = append(res.Violations, v)
	}
	ep.log.Printf("episode=%s task=%s %v", ep.id, ep.typ.name, v)
}

func (ep *Episode) terminate(cause Cause) {
	ep.phase = PhaseTerminated
	ep.cause = cause
	ep.dynamic = nil
	ep.log.Printf("episode=%s task=%s terminated cause=%s reward=%d elapsed=%d/%d",
		ep.id, ep.typ.name, cause, ep.reward, ep.clock.elapsed, ep.clock.max)
}

func (ep *Episode) finish(res Result) Result {
	res.Terminated = ep.phase == PhaseTerminated
	res.Cause = ep.cause
	res.Elapsed = ep.clock.elapsed
	if res.Terminated && ep.rewarded {
		res.Reward, res.Rewarded = ep.reward, true
	}
	return res
}

func (ep *Episode) ID() string { return ep.id }

func (ep *Episode) Task() Task { return ep.task }

func (ep *Episode) TaskName() string { return ep.typ.name }

func (ep *Episode) Phase() Phase {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.phase
}

func (ep *Episode) Cause() Cause {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.cause
}

func (ep *Episode) Elapsed() int {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.clock.elapsed
}

func (ep *Episode) MaxTime() int {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.clock.max
}

// Reward returns the terminal reward, if one was granted.
func (ep *Episode) Reward() (int, bool) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.reward, ep.rewarded
}

// Feedback is the last feedback message set by any reaction.
func (ep *Episode) Feedback() string {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.feedback
}

// State returns a copy of the task state.
func (ep *Episode) State() State {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.state.Clone()
}

func (ep *Episode) Faults() []error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return append([]error(nil), ep.faults...)
}

func (ep *Episode) Violations() []error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return append([]error(nil), ep.violations...)
}

// DynamicHandlers is the number of live instance-scoped bindings.
func (ep *Episode) DynamicHandlers() int {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return len(ep.dynamic)
}

// Summary is a flat view of an episode for reporting.
type Summary struct {
	ID         string `json:"id"`
	Task       string `json:"task"`
	Phase      Phase  `json:"phase"`
	Cause      Cause  `json:"cause,omitempty"`
	Reward     int    `json:"reward"`
	Rewarded   bool   `json:"rewarded"`
	Elapsed    int    `json:"elapsed"`
	MaxTime    int    `json:"max_time"`
	Feedback   string `json:"feedback,omitempty"`
	Faults     int    `json:"faults"`
	Violations int    `json:"violations"`
}

func (ep *Episode) Summary() Summary {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return Summary{
		ID:         ep.id,
		Task:       ep.typ.name,
		Phase:      ep.phase,
		Cause:      ep.cause,
		Reward:     ep.reward,
		Rewarded:   ep.rewarded,
		Elapsed:    ep.clock.elapsed,
		MaxTime:    ep.clock.max,
		Feedback:   ep.feedback,
		Faults:     len(ep.faults),
		Violations: len(ep.violations),
	}
}
