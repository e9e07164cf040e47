package task

import (
	"errors"
	"strings"
	"testing"

	"tutorsim.ai/internal/sim/world"
)

func TestDispatch_StatePredicateIsEdgeTriggered(t *testing.T) {
	typ := newType(t, "edge")
	fired := 0
	mustHandle(t, typ, OnInit(), func(c *Context, _ *Event) error {
		c.State().Set("dest", c.World().State().LearnerPos.Add(world.North.Vector()))
		return nil
	})
	mustHandle(t, typ, OnStateChanged(func(ws world.State, ts State) bool {
		return ws.LearnerPos == ts.Vec("dest")
	}), func(*Context, *Event) error { fired++; return nil })

	w := newWorld(t)
	ep := running(t, typ, w, 1000)

	ep.Tick()
	if fired != 0 {
		t.Fatalf("fired before reaching dest")
	}
	w.Interpret("I move forward.")
	ep.Tick()
	if fired != 1 {
		t.Fatalf("fired=%d on arrival", fired)
	}
	for i := 0; i < 3; i++ {
		ep.Tick()
	}
	if fired != 1 {
		t.Fatalf("re-fired while condition held: %d", fired)
	}

	w.Interpret("I move forward.")
	ep.Tick()
	w.Interpret("I turn right.")
	w.Interpret("I turn right.")
	w.Interpret("I move forward.")
	ep.Tick()
	if fired != 2 {
		t.Fatalf("expected a second edge after leaving and returning, fired=%d", fired)
	}
}

func TestDispatch_StateChangedCarriesSnapshots(t *testing.T) {
	typ := newType(t, "snap")
	var got *Event
	mustHandle(t, typ, OnStateChanged(func(ws world.State, _ State) bool {
		return ws.Inventory.Count("apple") > 0
	}), func(_ *Context, ev *Event) error { got = ev; return nil })

	w := newWorld(t)
	ep := running(t, typ, w, 1000)
	if err := w.AddItem("apple", 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	ep.Tick()
	if got == nil {
		t.Fatalf("no state change delivered")
	}
	if got.WorldBefore().Inventory.Count("apple") != 0 || got.WorldAfter().Inventory.Count("apple") != 1 {
		t.Fatalf("before=%v after=%v", got.WorldBefore().Inventory, got.WorldAfter().Inventory)
	}
}

func TestDispatch_ImpurePredicateIsViolation(t *testing.T) {
	typ := newType(t, "impure")
	mustHandle(t, typ, OnStateChanged(func(ws world.State, ts State) bool {
		ts.Set("touched", true)
		return false
	}), noop)

	ep := running(t, typ, newWorld(t), 100)
	res := ep.Tick()
	if !errors.Is(res.Err(), ErrImpurePredicate) {
		t.Fatalf("err=%v", res.Err())
	}
	if _, ok := ep.State().Get("touched"); ok {
		t.Fatalf("predicate reached live task state")
	}
}

func TestDispatch_AllMatchingMessageTriggersFireInOrder(t *testing.T) {
	typ := newType(t, "multi")
	var order []string
	mark := func(name string) Reaction {
		return func(*Context, *Event) error { order = append(order, name); return nil }
	}
	mustHandle(t, typ, OnMessage(`\.$`), mark("static-any"))
	mustHandle(t, typ, OnMessage(`^I give`), mark("static-give"))
	mustHandle(t, typ, OnMessage(`^never`), mark("static-never"))
	mustHandle(t, typ, OnStart(), func(c *Context, _ *Event) error {
		return c.Handle(OnMessage(`apple`), mark("dynamic-apple"))
	})

	ep := running(t, typ, newWorld(t), 100)
	ep.Message("I give you an apple.")
	want := "static-any,static-give,dynamic-apple"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order=%s want %s", got, want)
	}
}

func TestDispatch_ConsumeStopsLaterReactions(t *testing.T) {
	typ := newType(t, "consume")
	var order []string
	mustHandle(t, typ, OnMessage(`^I give you (an? (\w+))\.$`), func(c *Context, ev *Event) error {
		order = append(order, "give:"+ev.Match(2))
		c.Consume()
		return nil
	})
	mustHandle(t, typ, OnMessage(`\.$`), func(c *Context, ev *Event) error {
		order = append(order, "any")
		return nil
	})

	ep := running(t, typ, newWorld(t), 100)
	ep.Message("I give you a pear.")
	ep.Message("3.")
	if got := strings.Join(order, ","); got != "give:pear,any" {
		t.Fatalf("order=%s", got)
	}
}

func TestDispatch_MatchGroups(t *testing.T) {
	typ := newType(t, "groups")
	var m0, m1, m2, m9 string
	mustHandle(t, typ, OnMessage(`I give you (an? (\w+))\.$`), func(_ *Context, ev *Event) error {
		m0, m1, m2, m9 = ev.Match(0), ev.Match(1), ev.Match(2), ev.Match(9)
		return nil
	})
	ep := running(t, typ, newWorld(t), 100)
	ep.Message("I give you an apple.")
	if m0 != "I give you an apple." || m1 != "an apple" || m2 != "apple" || m9 != "" {
		t.Fatalf("groups: %q %q %q %q", m0, m1, m2, m9)
	}
}

func TestDispatch_FeedbackLatestWins(t *testing.T) {
	typ := newType(t, "feedback")
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error { c.SetMessage("first"); return nil })
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error { c.SetMessage("second"); return nil })

	ep := running(t, typ, newWorld(t), 100)
	if res := ep.Message("x."); res.Feedback != "second" {
		t.Fatalf("feedback=%q", res.Feedback)
	}
	if ep.Feedback() != "second" {
		t.Fatalf("episode feedback=%q", ep.Feedback())
	}
}

func TestDispatch_FirstRewardWins(t *testing.T) {
	typ := newType(t, "rewards")
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error { c.SetReward(1, ""); return nil })
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error { c.SetReward(0, ""); return nil })

	ep := running(t, typ, newWorld(t), 100)
	res := ep.Message("x.")
	if res.Reward != 1 || res.Cause != CauseReward {
		t.Fatalf("reward=%d cause=%s", res.Reward, res.Cause)
	}
	if len(res.Violations) != 1 || !errors.Is(res.Violations[0], ErrSecondReward) {
		t.Fatalf("violations=%v", res.Violations)
	}
}

func TestDispatch_NegativeRewardRejected(t *testing.T) {
	typ := newType(t, "negative")
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error { c.SetReward(-1, ""); return nil })

	ep := running(t, typ, newWorld(t), 100)
	res := ep.Message("x.")
	if res.Terminated || !errors.Is(res.Err(), ErrNegativeReward) {
		t.Fatalf("terminated=%v err=%v", res.Terminated, res.Err())
	}
}

func TestDispatch_FaultIsIsolated(t *testing.T) {
	typ := newType(t, "faulty")
	ran := 0
	mustHandle(t, typ, OnMessage(`.`), func(*Context, *Event) error { return errors.New("boom") })
	mustHandle(t, typ, OnMessage(`.`), func(*Context, *Event) error { panic("kaboom") })
	mustHandle(t, typ, OnMessage(`.`), func(*Context, *Event) error { ran++; return nil })

	ep := running(t, typ, newWorld(t), 100)
	res := ep.Message("x.")
	if ran != 1 {
		t.Fatalf("later reaction did not run")
	}
	if len(res.Faults) != 2 || res.Terminated {
		t.Fatalf("faults=%v terminated=%v", res.Faults, res.Terminated)
	}
	var hf *HandlerFault
	if !errors.As(res.Faults[1], &hf) || hf.Event != TagMessage || !strings.Contains(hf.Err.Error(), "kaboom") {
		t.Fatalf("fault=%v", res.Faults[1])
	}
	if ep.Phase() != PhaseRunning {
		t.Fatalf("phase=%s", ep.Phase())
	}
}

func TestDispatch_InitFaultTerminates(t *testing.T) {
	typ := newType(t, "badinit")
	ran := false
	mustHandle(t, typ, OnInit(), func(*Context, *Event) error { return errors.New("no world") })
	mustHandle(t, typ, OnInit(), func(*Context, *Event) error { ran = true; return nil })

	ep := newEpisode(t, typ, newWorld(t), 100)
	res := ep.Init()
	if !ran {
		t.Fatalf("remaining init reactions should run")
	}
	if !res.Terminated || res.Cause != CauseFault || res.Rewarded {
		t.Fatalf("result=%+v", res)
	}
}

func TestDispatch_DynamicHandlersScopedToInstance(t *testing.T) {
	typ := newType(t, "dyn")
	hits := map[string]int{}
	mustHandle(t, typ, OnInit(), func(c *Context, _ *Event) error {
		id := c.EpisodeID()
		return c.Handle(OnMessage(`^ping\.$`), func(c *Context, _ *Event) error {
			hits[id]++
			return nil
		})
	})
	mustHandle(t, typ, OnMessage(`^stop\.$`), func(c *Context, _ *Event) error { c.SetReward(0, ""); return nil })

	w := newWorld(t)
	a := running(t, typ, w, 100)
	b := running(t, typ, w, 100)
	if a.DynamicHandlers() != 1 || b.DynamicHandlers() != 1 {
		t.Fatalf("dynamic handlers a=%d b=%d", a.DynamicHandlers(), b.DynamicHandlers())
	}

	a.Message("ping.")
	if hits[a.ID()] != 1 || hits[b.ID()] != 0 {
		t.Fatalf("hits=%v", hits)
	}
	a.Message("stop.")
	if a.DynamicHandlers() != 0 {
		t.Fatalf("dynamic handlers survived termination")
	}
	b.Message("ping.")
	if hits[a.ID()] != 1 || hits[b.ID()] != 1 {
		t.Fatalf("hits=%v", hits)
	}
}

func TestDispatch_DynamicHandlerSeesLaterEventsOnly(t *testing.T) {
	typ := newType(t, "later")
	hits := 0
	mustHandle(t, typ, OnMessage(`.`), func(c *Context, _ *Event) error {
		return c.Handle(OnMessage(`.`), func(*Context, *Event) error { hits++; return nil })
	})
	ep := running(t, typ, newWorld(t), 100)
	ep.Message("a.")
	if hits != 0 {
		t.Fatalf("handler saw the event that registered it")
	}
	ep.Message("b.")
	if hits != 1 {
		t.Fatalf("hits=%d", hits)
	}
}

func TestDispatch_StaleContext(t *testing.T) {
	typ := newType(t, "stale")
	var saved *Context
	mustHandle(t, typ, OnStart(), func(c *Context, _ *Event) error { saved = c; return nil })

	ep := running(t, typ, newWorld(t), 100)
	err := saved.Handle(OnMessage(`.`), noop)
	if !errors.Is(err, ErrOutsideDispatch) {
		t.Fatalf("err=%v", err)
	}
	saved.SetReward(1, "late")
	if ep.Phase() != PhaseRunning || ep.Feedback() != "" {
		t.Fatalf("stale context changed the episode")
	}
}

type otherTask struct{ probeTask }

func TestMethod_WrongInstanceFaults(t *testing.T) {
	typ := newType(t, "method")
	mustHandle(t, typ, OnMessage(`.`), Method(func(*otherTask, *Context, *Event) error { return nil }))
	ep := running(t, typ, newWorld(t), 100)
	var hf *HandlerFault
	if res := ep.Message("x."); !errors.As(res.Err(), &hf) {
		t.Fatalf("err=%v", res.Err())
	}
}

func TestDispatch_StartFaultTerminates(t *testing.T) {
	typ := newType(t, "badstart")
	mustHandle(t, typ, OnStart(), func(*Context, *Event) error { panic("no instruction") })

	ep := newEpisode(t, typ, newWorld(t), 100)
	if res := ep.Init(); res.Terminated {
		t.Fatalf("init should succeed: %+v", res)
	}
	res := ep.Start()
	if !res.Terminated || res.Cause != CauseFault || len(res.Faults) != 1 {
		t.Fatalf("result=%+v", res)
	}
	if ep.Phase() != PhaseTerminated {
		t.Fatalf("phase=%s", ep.Phase())
	}
}

func TestDispatch_StaleConsumeIgnored(t *testing.T) {
	typ := newType(t, "staleconsume")
	var saved *Context
	mustHandle(t, typ, OnStart(), func(c *Context, _ *Event) error { saved = c; return nil })

	running(t, typ, newWorld(t), 100)
	saved.Consume()
	if saved.d.consumed {
		t.Fatalf("consume recorded after dispatch closed")
	}
}
