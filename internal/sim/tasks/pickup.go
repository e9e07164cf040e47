package tasks

import (
	"fmt"

	"tutorsim.ai/internal/sim/task"
	"tutorsim.ai/internal/sim/world"
)

// placement decides where the target object is put relative to the learner.
type placement int

const (
	placeUnderfoot placement = iota
	placeAround
	placeInFront
)

// PickUpTask and its variants place an object near the learner and reward
// picking it up.
type PickUpTask struct {
	env   Env
	where placement
	obj   string
	dir   world.Direction
}

var (
	pickUpType        = define("pick_up", func(env Env) task.Task { return &PickUpTask{env: env, where: placeUnderfoot} })
	pickUpAroundType  = define("pick_up_around", func(env Env) task.Task { return &PickUpTask{env: env, where: placeAround} })
	pickUpInFrontType = define("pick_up_in_front", func(env Env) task.Task { return &PickUpTask{env: env, where: placeInFront} })
)

func init() {
	for _, typ := range []*task.Type{pickUpType, pickUpAroundType, pickUpInFrontType} {
		typ.
			MustHandle(task.OnInit(), task.Method((*PickUpTask).onInit)).
			MustHandle(task.OnStart(), task.Method((*PickUpTask).onStart))
	}
}

func (t *PickUpTask) Type() *task.Type {
	switch t.where {
	case placeAround:
		return pickUpAroundType
	case placeInFront:
		return pickUpInFrontType
	default:
		return pickUpType
	}
}

func (t *PickUpTask) MaxTime() int {
	tm := t.env.Timing
	budget := tm.Chars(50) + 2*tm.Pick()
	if t.where == placeAround {
		budget += 4*tm.Move() + 4*tm.Turn()
	}
	return budget
}

func (t *PickUpTask) onInit(c *task.Context, _ *task.Event) error {
	ws := c.World().State()
	t.obj = t.env.Content.PickObject(t.env.Rand)
	pos := ws.LearnerPos
	switch t.where {
	case placeAround:
		dirs := world.Directions()
		t.dir = dirs[t.env.Rand.Intn(len(dirs))]
		pos = pos.Add(t.dir.Vector())
	case placeInFront:
		pos = pos.Add(ws.LearnerDir.Vector())
	}
	if err := placeTarget(c, t.obj, pos); err != nil {
		return err
	}
	obj := t.obj
	return c.Handle(task.OnStateChanged(pickedUp(obj)), func(c *task.Context, _ *task.Event) error {
		c.SetReward(1, fmt.Sprintf("You picked up the %s.", obj))
		return nil
	})
}

func (t *PickUpTask) onStart(c *task.Context, _ *task.Event) error {
	switch t.where {
	case placeAround:
		c.SetMessage(fmt.Sprintf("There is %s %s from you. Pick up the %s.", IndefArticle(t.obj), t.dir, t.obj))
	case placeInFront:
		c.SetMessage(fmt.Sprintf("There is %s in front of you. Pick up the %s.", IndefArticle(t.obj), t.obj))
	default:
		c.SetMessage(fmt.Sprintf("Pick up the %s.", t.obj))
	}
	return nil
}

// placeTarget puts a collectible obj at pos and remembers how many the
// learner held beforehand.
func placeTarget(c *task.Context, obj string, pos world.Vec) error {
	c.State().Set("target_obj", obj)
	c.State().Set("initial_count", c.World().State().Inventory.Count(obj))
	if err := c.World().PutEntity(pos, obj, true, true); err != nil {
		return fmt.Errorf("place %s at %s: %w", obj, pos, err)
	}
	return nil
}

func pickedUp(obj string) task.Predicate {
	return func(ws world.State, ts task.State) bool {
		return ws.Inventory.Count(obj) == ts.Int("initial_count")+1
	}
}
