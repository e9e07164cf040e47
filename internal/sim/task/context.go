package task

import "fmt"

// Context is a reaction's handle on its episode. It is only valid for the
// duration of the reaction call; effects requested afterwards are dropped.
type Context struct {
	ep *Episode
	d  *dispatchState
}

func (c *Context) Task() Task { return c.ep.task }

func (c *Context) World() World { return c.ep.world }

// State is the live task state; reactions may read and write it.
func (c *Context) State() State { return c.ep.state }

func (c *Context) EpisodeID() string { return c.ep.id }

func (c *Context) Elapsed() int { return c.ep.clock.elapsed }

func (c *Context) MaxTime() int { return c.ep.clock.max }

// SetMessage sets the feedback for this dispatch; the last call wins.
func (c *Context) SetMessage(text string) {
	if c.d.closed {
		return
	}
	c.d.feedback = text
	c.d.hasFeedback = true
}

// SetReward emits the terminal reward, ending the episode once the current
// event's reactions have run. feedback, if not empty, is set as the message.
// Only the first reward of a dispatch counts.
func (c *Context) SetReward(reward int, feedback string) {
	if c.d.closed {
		return
	}
	if reward < 0 {
		c.ep.violate(c.d.res, c.d.ev.tag, fmt.Errorf("%w: %d", ErrNegativeReward, reward))
		return
	}
	if c.d.rewarded {
		c.ep.violate(c.d.res, c.d.ev.tag, fmt.Errorf("%w: have %d, got %d", ErrSecondReward, c.d.reward, reward))
		return
	}
	c.d.reward, c.d.rewarded = reward, true
	if feedback != "" {
		c.SetMessage(feedback)
	}
}

// Handle registers an instance-scoped binding. It stays active until the
// episode terminates and first sees the event after the current one.
func (c *Context) Handle(trig Trigger, r Reaction) error {
	if c.d.closed {
		return &RegistrationError{Type: c.ep.typ.name, Trigger: trig.String(), Err: ErrOutsideDispatch}
	}
	if c.ep.phase == PhaseTerminated {
		return &RegistrationError{Type: c.ep.typ.name, Trigger: trig.String(), Err: ErrTerminated}
	}
	b, err := compileBinding(c.ep.typ.name, "dynamic", len(c.ep.dynamic), trig, r)
	if err != nil {
		return err
	}
	c.ep.dynamic = append(c.ep.dynamic, b)
	return nil
}

// Consume stops the remaining reactions for the current event.
func (c *Context) Consume() {
	if c.d.closed {
		return
	}
	c.d.consumed = true
}

func (c *Context) Logf(format string, args ...any) {
	c.ep.log.Printf("episode=%s task=%s "+format, append([]any{c.ep.id, c.ep.typ.name}, args...)...)
}
