package tasks

import (
	"fmt"

	"tutorsim.ai/internal/sim/task"
	"tutorsim.ai/internal/sim/world"
)

// TurningTask asks for a quarter turn to the left or right.
type TurningTask struct {
	env  Env
	turn string
}

// MovingTask asks for one step forward.
type MovingTask struct{ env Env }

// MovingRelativeTask asks for one step to the learner's left or right.
type MovingRelativeTask struct {
	env  Env
	turn string
}

// MovingAbsoluteTask names the target direction by compass point.
type MovingAbsoluteTask struct{ env Env }

var (
	turningType = define("turning", func(env Env) task.Task { return &TurningTask{env: env} })
	movingType  = define("moving", func(env Env) task.Task { return &MovingTask{env: env} })
	relType     = define("moving_relative", func(env Env) task.Task { return &MovingRelativeTask{env: env} })
	absType     = define("moving_absolute", func(env Env) task.Task { return &MovingAbsoluteTask{env: env} })
)

func facingTarget(ws world.State, ts task.State) bool {
	return ws.LearnerDir == ts.Dir("target_dir")
}

func atDestination(ws world.State, ts task.State) bool {
	return ws.LearnerPos == ts.Vec("dest_pos")
}

func rewardOne(c *task.Context, _ *task.Event) error {
	c.SetReward(1, "")
	return nil
}

func init() {
	turningType.
		MustHandle(task.OnInit(), task.Method((*TurningTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*TurningTask).onStart)).
		MustHandle(task.OnStateChanged(facingTarget), rewardOne)

	movingType.
		MustHandle(task.OnInit(), task.Method((*MovingTask).onInit)).
		MustHandle(task.OnStart(), func(c *task.Context, _ *task.Event) error {
			c.SetMessage("Move forward.")
			return nil
		}).
		MustHandle(task.OnStateChanged(atDestination), rewardOne)

	relType.
		MustHandle(task.OnInit(), task.Method((*MovingRelativeTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*MovingRelativeTask).onStart)).
		MustHandle(task.OnStateChanged(atDestination), rewardOne)

	absType.
		MustHandle(task.OnInit(), task.Method((*MovingAbsoluteTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*MovingAbsoluteTask).onStart)).
		MustHandle(task.OnStateChanged(atDestination), rewardOne)
}

func (t *TurningTask) Type() *task.Type { return turningType }
func (t *TurningTask) MaxTime() int     { return 3 * t.env.Timing.Turn() }

func (t *TurningTask) onInit(c *task.Context, _ *task.Event) error {
	word, steps := pickTurn(t.env.Rand)
	t.turn = word
	c.State().Set("init_dir", c.World().State().LearnerDir)
	c.State().Set("target_dir", c.World().ClockwiseDirection(steps))
	return nil
}

func (t *TurningTask) onStart(c *task.Context, _ *task.Event) error {
	c.SetMessage(fmt.Sprintf("Turn %s.", t.turn))
	return nil
}

func (t *MovingTask) Type() *task.Type { return movingType }
func (t *MovingTask) MaxTime() int     { return 3 * t.env.Timing.Move() }

func (t *MovingTask) onInit(c *task.Context, _ *task.Event) error {
	ws := c.World().State()
	c.State().Set("initial_pos", ws.LearnerPos)
	c.State().Set("dest_pos", ws.LearnerPos.Add(ws.LearnerDir.Vector()))
	return nil
}

// initSideStep records a destination one cell towards a random side.
func initSideStep(c *task.Context, env Env) string {
	ws := c.World().State()
	word, steps := pickTurn(env.Rand)
	target := c.World().ClockwiseDirection(steps)
	st := c.State()
	st.Set("init_dir", ws.LearnerDir)
	st.Set("initial_pos", ws.LearnerPos)
	st.Set("target_dir", target)
	st.Set("dest_pos", ws.LearnerPos.Add(target.Vector()))
	return word
}

func (t *MovingRelativeTask) Type() *task.Type { return relType }
func (t *MovingRelativeTask) MaxTime() int {
	return 2*t.env.Timing.Turn() + 2*t.env.Timing.Move()
}

func (t *MovingRelativeTask) onInit(c *task.Context, _ *task.Event) error {
	t.turn = initSideStep(c, t.env)
	return nil
}

func (t *MovingRelativeTask) onStart(c *task.Context, _ *task.Event) error {
	c.SetMessage(fmt.Sprintf("Move %s.", t.turn))
	return nil
}

func (t *MovingAbsoluteTask) Type() *task.Type { return absType }
func (t *MovingAbsoluteTask) MaxTime() int {
	return 8*t.env.Timing.Turn() + 4*t.env.Timing.Move()
}

func (t *MovingAbsoluteTask) onInit(c *task.Context, _ *task.Event) error {
	initSideStep(c, t.env)
	return nil
}

func (t *MovingAbsoluteTask) onStart(c *task.Context, _ *task.Event) error {
	st := c.State()
	c.SetMessage(fmt.Sprintf("You are facing %s, move %s.", st.Dir("init_dir"), st.Dir("target_dir")))
	return nil
}
