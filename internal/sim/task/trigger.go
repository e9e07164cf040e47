package task

import (
	"fmt"
	"regexp"

	"tutorsim.ai/internal/sim/world"
)

// Predicate is a pure condition over a world snapshot and the task state.
type Predicate func(w world.State, s State) bool

// Reaction is the effect run when a trigger matches.
type Reaction func(c *Context, ev *Event) error

// Method adapts a method expression such as (*VerbTask).onStart into a
// Reaction that receives the episode's task instance explicitly.
func Method[T Task](fn func(T, *Context, *Event) error) Reaction {
	return func(c *Context, ev *Event) error {
		t, ok := c.Task().(T)
		if !ok {
			var want T
			return fmt.Errorf("reaction bound to %T, episode runs %T", want, c.Task())
		}
		return fn(t, c, ev)
	}
}

type triggerKind uint8

const (
	triggerTag triggerKind = iota + 1
	triggerMessage
	triggerState
)

// Trigger selects the events a reaction is eligible for.
type Trigger struct {
	kind    triggerKind
	tag     Tag
	pattern string
	pred    Predicate
}

func OnInit() Trigger    { return Trigger{kind: triggerTag, tag: TagInit} }
func OnStart() Trigger   { return Trigger{kind: triggerTag, tag: TagStart} }
func OnTimeout() Trigger { return Trigger{kind: triggerTag, tag: TagTimeout} }

// OnMessage matches utterances against a regular expression. The pattern is
// compiled at registration and is not anchored implicitly.
func OnMessage(pattern string) Trigger {
	return Trigger{kind: triggerMessage, tag: TagMessage, pattern: pattern}
}

// OnStateChanged fires on the tick where p goes from false to true.
func OnStateChanged(p Predicate) Trigger {
	return Trigger{kind: triggerState, tag: TagStateChanged, pred: p}
}

func (t Trigger) String() string {
	switch t.kind {
	case triggerTag:
		return "on_" + t.tag.String()
	case triggerMessage:
		return fmt.Sprintf("on_message(%q)", t.pattern)
	case triggerState:
		return "on_state_changed"
	default:
		return "invalid"
	}
}

type binding struct {
	name  string
	trig  Trigger
	re    *regexp.Regexp
	react Reaction
}

func compileBinding(typeName, scope string, seq int, trig Trigger, r Reaction) (binding, error) {
	fail := func(err error) (binding, error) {
		return binding{}, &RegistrationError{Type: typeName, Trigger: trig.String(), Err: err}
	}
	if r == nil {
		return fail(ErrNilReaction)
	}
	b := binding{
		name:  fmt.Sprintf("%s#%d %s", scope, seq, trig),
		trig:  trig,
		react: r,
	}
	switch trig.kind {
	case triggerTag:
		if trig.tag != TagInit && trig.tag != TagStart && trig.tag != TagTimeout {
			return fail(fmt.Errorf("%w: tag %s", ErrBadTrigger, trig.tag))
		}
	case triggerMessage:
		re, err := regexp.Compile(trig.pattern)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrBadTrigger, err))
		}
		b.re = re
	case triggerState:
		if trig.pred == nil {
			return fail(fmt.Errorf("%w: nil predicate", ErrBadTrigger))
		}
	default:
		return fail(ErrBadTrigger)
	}
	return b, nil
}

// edge evaluates the predicate on private copies of both snapshots.
// impure is set when the predicate wrote to a copy it was handed.
func (b *binding) edge(ev *Event) (fired, impure bool) {
	wb, tb := ev.worldBefore.Clone(), ev.taskBefore.Clone()
	was := b.trig.pred(wb, tb)
	wa, ta := ev.worldAfter.Clone(), ev.taskAfter.Clone()
	now := b.trig.pred(wa, ta)
	impure = !wb.Equal(ev.worldBefore) || !tb.Equal(ev.taskBefore) ||
		!wa.Equal(ev.worldAfter) || !ta.Equal(ev.taskAfter)
	return !was && now, impure
}
