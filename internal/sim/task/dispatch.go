package task

import "fmt"

// dispatchState collects the effects reactions request for one event.
type dispatchState struct {
	res *Result
	ev  *Event

	feedback    string
	hasFeedback bool
	reward      int
	rewarded    bool
	consumed    bool
	// fatal is set by a fault in lifecycle bookkeeping (Init, Start).
	fatal  bool
	closed bool
}

type match struct {
	b      *binding
	groups []string
}

// deliver dispatches events in order. Once the episode terminates the rest
// are discarded.
func (ep *Episode) deliver(res *Result, events ...*Event) {
	for _, ev := range events {
		if ep.phase == PhaseTerminated {
			return
		}
		ep.dispatch(res, ev)
	}
}

func (ep *Episode) dispatch(res *Result, ev *Event) {
	res.Delivered = append(res.Delivered, ev.tag)

	d := &dispatchState{res: res, ev: ev}
	c := &Context{ep: ep, d: d}
	for _, m := range ep.resolve(d, ev) {
		if d.consumed {
			break
		}
		ep.invoke(c, d, m)
	}
	d.closed = true

	if d.hasFeedback {
		ep.feedback = d.feedback
		res.Feedback = d.feedback
	}
	switch {
	case ev.tag == TagTimeout:
		// Implicit zero unless a timeout reaction granted something.
		ep.reward, ep.rewarded = 0, true
		if d.rewarded {
			ep.reward = d.reward
		}
		ep.terminate(CauseTimeout)
	case d.rewarded:
		ep.reward, ep.rewarded = d.reward, true
		ep.terminate(CauseReward)
	case d.fatal:
		ep.terminate(CauseFault)
	}
}

// resolve returns the matching bindings: static in declaration order, then
// dynamic in registration order. Bindings added while the event is being
// dispatched only see later events.
func (ep *Episode) resolve(d *dispatchState, ev *Event) []match {
	dynamic := ep.dynamic[:len(ep.dynamic):len(ep.dynamic)]
	var out []match
	for _, set := range [2][]binding{ep.static, dynamic} {
		for i := range set {
			b := &set[i]
			if groups, ok := ep.matches(d, b, ev); ok {
				out = append(out, match{b: b, groups: groups})
			}
		}
	}
	return out
}

func (ep *Episode) matches(d *dispatchState, b *binding, ev *Event) (groups []string, ok bool) {
	if b.trig.tag != ev.tag {
		return nil, false
	}
	switch b.trig.kind {
	case triggerTag:
		return nil, true
	case triggerMessage:
		m := b.re.FindStringSubmatch(ev.text)
		return m, m != nil
	case triggerState:
		defer func() {
			if r := recover(); r != nil {
				ep.fault(d, b, fmt.Errorf("predicate panic: %v", r))
				groups, ok = nil, false
			}
		}()
		fired, impure := b.edge(ev)
		if impure {
			ep.violate(d.res, ev.tag, fmt.Errorf("%w: %s", ErrImpurePredicate, b.name))
		}
		return nil, fired
	}
	return nil, false
}

// invoke runs one reaction. An error or panic aborts only this reaction.
func (ep *Episode) invoke(c *Context, d *dispatchState, m match) {
	defer func() {
		if r := recover(); r != nil {
			ep.fault(d, m.b, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := m.b.react(c, d.ev.withGroups(m.groups)); err != nil {
		ep.fault(d, m.b, err)
	}
}

func (ep *Episode) fault(d *dispatchState, b *binding, err error) {
	f := &HandlerFault{Episode: ep.id, Event: d.ev.tag, Binding: b.name, Err: err}
	ep.faults = append(ep.faults, f)
	d.res.Faults = append(d.res.Faults, f)
	if d.ev.tag == TagInit || d.ev.tag == TagStart {
		d.fatal = true
	}
	ep.log.Printf("episode=%s task=%s %v", ep.id, ep.typ.name, f)
}
