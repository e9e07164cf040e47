package task

import (
	"errors"
	"testing"

	"tutorsim.ai/internal/sim/world"
)

func TestEpisode_LifecycleOrder(t *testing.T) {
	typ := newType(t, "order")
	var seen []Tag
	record := func(_ *Context, ev *Event) error {
		seen = append(seen, ev.Tag())
		return nil
	}
	mustHandle(t, typ, OnInit(), record)
	mustHandle(t, typ, OnStart(), record)
	mustHandle(t, typ, OnMessage(`.`), record)
	mustHandle(t, typ, OnStateChanged(func(world.State, State) bool { return false }), record)

	ep := newEpisode(t, typ, newWorld(t), 100)
	if ep.Phase() != PhaseCreated {
		t.Fatalf("phase=%s", ep.Phase())
	}
	ep.Init()
	if ep.Phase() != PhaseInitialized {
		t.Fatalf("phase after init=%s", ep.Phase())
	}
	ep.Start()
	if ep.Phase() != PhaseRunning {
		t.Fatalf("phase after start=%s", ep.Phase())
	}
	res := ep.Message("hello.")
	if len(res.Delivered) != 1 || res.Delivered[0] != TagMessage {
		t.Fatalf("delivered=%v", res.Delivered)
	}
	ep.Tick()

	want := []Tag{TagInit, TagStart, TagMessage}
	if len(seen) != len(want) {
		t.Fatalf("seen=%v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen=%v want %v", seen, want)
		}
	}
}

func TestEpisode_OutOfOrderIsViolation(t *testing.T) {
	typ := newType(t, "ooo")
	starts := 0
	mustHandle(t, typ, OnStart(), func(*Context, *Event) error { starts++; return nil })

	ep := newEpisode(t, typ, newWorld(t), 100)
	res := ep.Start()
	if len(res.Violations) != 1 || !errors.Is(res.Violations[0], ErrOutOfOrder) {
		t.Fatalf("expected out-of-order violation, got %v", res.Violations)
	}
	if res = ep.Message("hi."); !errors.Is(res.Err(), ErrOutOfOrder) {
		t.Fatalf("message before start: %v", res.Err())
	}
	ep.Init()
	ep.Start()
	if res = ep.Start(); !errors.Is(res.Err(), ErrOutOfOrder) {
		t.Fatalf("second start: %v", res.Err())
	}
	if starts != 1 {
		t.Fatalf("start fired %d times", starts)
	}
	var cv *ContractViolation
	if !errors.As(res.Violations[0], &cv) || cv.Episode != ep.ID() {
		t.Fatalf("violation not attributed to episode: %v", res.Violations[0])
	}
	if len(ep.Violations()) != 3 {
		t.Fatalf("recorded violations=%d", len(ep.Violations()))
	}
}

func TestEpisode_TerminalRewardStopsDelivery(t *testing.T) {
	typ := newType(t, "reward")
	after := 0
	mustHandle(t, typ, OnMessage(`^done\.$`), func(c *Context, _ *Event) error {
		c.SetReward(1, "Well done.")
		return nil
	})
	mustHandle(t, typ, OnMessage(`\.$`), func(*Context, *Event) error { after++; return nil })

	ep := running(t, typ, newWorld(t), 100)
	res := ep.Message("done.")
	if !res.Terminated || res.Cause != CauseReward || !res.Rewarded || res.Reward != 1 {
		t.Fatalf("result=%+v", res)
	}
	if res.Feedback != "Well done." {
		t.Fatalf("feedback=%q", res.Feedback)
	}
	if after != 1 {
		t.Fatalf("remaining reactions of the same event should run, got %d", after)
	}
	if ep.Phase() != PhaseTerminated {
		t.Fatalf("phase=%s", ep.Phase())
	}

	res = ep.Message("more.")
	if !errors.Is(res.Err(), ErrTerminated) || len(res.Delivered) != 0 {
		t.Fatalf("delivery after termination: delivered=%v err=%v", res.Delivered, res.Err())
	}
	if after != 1 {
		t.Fatalf("reaction ran after termination")
	}
	if res = ep.Tick(); !errors.Is(res.Err(), ErrTerminated) {
		t.Fatalf("tick after termination: %v", res.Err())
	}
}

func TestEpisode_TimeoutAtExactBudget(t *testing.T) {
	typ := newType(t, "slow")
	timeouts := 0
	mustHandle(t, typ, OnTimeout(), func(*Context, *Event) error { timeouts++; return nil })

	ep := running(t, typ, newWorld(t), 10)
	for i := 1; i < 10; i++ {
		res := ep.Advance(1)
		if res.Terminated {
			t.Fatalf("terminated early at unit %d", i)
		}
	}
	res := ep.Advance(1)
	if !res.Terminated || res.Cause != CauseTimeout {
		t.Fatalf("expected timeout at unit 10, got %+v", res)
	}
	if !res.Rewarded || res.Reward != 0 || res.Elapsed != 10 {
		t.Fatalf("reward=%d rewarded=%v elapsed=%d", res.Reward, res.Rewarded, res.Elapsed)
	}
	if ep.Advance(1); ep.Elapsed() != 10 {
		t.Fatalf("elapsed moved past budget: %d", ep.Elapsed())
	}
	if timeouts != 1 {
		t.Fatalf("timeout fired %d times", timeouts)
	}
}

func TestEpisode_TimeoutClampsOvershoot(t *testing.T) {
	typ := newType(t, "overshoot")
	ep := running(t, typ, newWorld(t), 10)
	res := ep.Advance(25)
	if res.Cause != CauseTimeout || res.Elapsed != 10 {
		t.Fatalf("cause=%s elapsed=%d", res.Cause, res.Elapsed)
	}
}

func TestEpisode_TimeoutBeforeStart(t *testing.T) {
	typ := newType(t, "early")
	started := false
	mustHandle(t, typ, OnStart(), func(*Context, *Event) error { started = true; return nil })

	ep := newEpisode(t, typ, newWorld(t), 5)
	ep.Init()
	if res := ep.Advance(5); res.Cause != CauseTimeout {
		t.Fatalf("cause=%s", res.Cause)
	}
	if res := ep.Start(); !errors.Is(res.Err(), ErrTerminated) || started {
		t.Fatalf("start after timeout: started=%v err=%v", started, res.Err())
	}
}

func TestEpisode_NegativeAdvance(t *testing.T) {
	ep := running(t, newType(t, "neg"), newWorld(t), 10)
	if res := ep.Advance(-1); !errors.Is(res.Err(), ErrNegativeTime) {
		t.Fatalf("err=%v", res.Err())
	}
	if ep.Elapsed() != 0 {
		t.Fatalf("elapsed=%d", ep.Elapsed())
	}
}

func TestEpisode_Abort(t *testing.T) {
	typ := newType(t, "abort")
	ep := running(t, typ, newWorld(t), 100)
	res := ep.Abort()
	if !res.Terminated || res.Cause != CauseAborted || res.Rewarded {
		t.Fatalf("abort result=%+v", res)
	}
	if res = ep.Abort(); !errors.Is(res.Err(), ErrTerminated) {
		t.Fatalf("second abort: %v", res.Err())
	}

	fresh := newEpisode(t, newType(t, "abort-created"), newWorld(t), 100)
	if res := fresh.Abort(); res.Cause != CauseAborted {
		t.Fatalf("abort from created: %s", res.Cause)
	}
}

func TestNewEpisode_Validates(t *testing.T) {
	typ := newType(t, "v")
	if _, err := NewEpisode(nil, newWorld(t)); err == nil {
		t.Fatalf("expected nil task rejected")
	}
	if _, err := NewEpisode(&probeTask{typ: typ, max: 1}, nil); err == nil {
		t.Fatalf("expected nil world rejected")
	}
	if _, err := NewEpisode(&probeTask{typ: typ, max: 0}, newWorld(t)); err == nil {
		t.Fatalf("expected zero budget rejected")
	}
	ep, err := NewEpisode(&probeTask{typ: typ, max: 0}, newWorld(t), WithMaxTime(7), WithID("ep-1"))
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if ep.ID() != "ep-1" || ep.MaxTime() != 7 {
		t.Fatalf("id=%s max=%d", ep.ID(), ep.MaxTime())
	}
}

func TestEpisode_TimeoutReactionMaySetReward(t *testing.T) {
	typ := newType(t, "consolation")
	mustHandle(t, typ, OnTimeout(), func(c *Context, _ *Event) error {
		c.SetReward(2, "Out of time.")
		return nil
	})
	ep := running(t, typ, newWorld(t), 3)
	res := ep.Advance(3)
	if res.Cause != CauseTimeout || res.Reward != 2 || res.Feedback != "Out of time." {
		t.Fatalf("result=%+v", res)
	}
}
