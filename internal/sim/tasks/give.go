package tasks

import (
	"fmt"

	"tutorsim.ai/internal/sim/task"
	"tutorsim.ai/internal/sim/world"
)

const givePattern = `I give you (an? (\w+))\.$`

// GiveTask hands the learner an object and asks for it back.
type GiveTask struct {
	env Env
	obj string
}

// PickUpAroundAndGiveTask places an object next to the learner, who must
// fetch it and give it to the teacher.
type PickUpAroundAndGiveTask struct {
	env Env
	obj string
	dir world.Direction
}

var (
	giveType          = define("give", func(env Env) task.Task { return &GiveTask{env: env} })
	pickUpAndGiveType = define("pick_up_around_and_give", func(env Env) task.Task { return &PickUpAroundAndGiveTask{env: env} })
)

func init() {
	giveType.
		MustHandle(task.OnInit(), task.Method((*GiveTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*GiveTask).onStart)).
		MustHandle(task.OnMessage(givePattern), task.Method((*GiveTask).onGive))

	pickUpAndGiveType.
		MustHandle(task.OnInit(), task.Method((*PickUpAroundAndGiveTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*PickUpAroundAndGiveTask).onStart)).
		MustHandle(task.OnMessage(givePattern), task.Method((*PickUpAroundAndGiveTask).onGive))
}

func (t *GiveTask) Type() *task.Type { return giveType }
func (t *GiveTask) MaxTime() int {
	return t.env.Timing.Chars(50) + 2*t.env.Timing.Give()
}

func (t *GiveTask) onInit(c *task.Context, _ *task.Event) error {
	t.obj = t.env.Content.PickObject(t.env.Rand)
	c.State().Set("target_obj", t.obj)
	c.State().Set("initial_count", c.World().State().Inventory.Count(t.obj))
	return c.World().AddItem(t.obj, 1)
}

func (t *GiveTask) onStart(c *task.Context, _ *task.Event) error {
	a := IndefArticle(t.obj)
	c.SetMessage(fmt.Sprintf("I gave you %s. Give it back to me by saying \"I give you %s\".", a, a))
	return nil
}

func (t *GiveTask) onGive(c *task.Context, ev *task.Event) error {
	if !checkGift(c, ev, t.obj) {
		return nil
	}
	return takeBack(c, t.obj)
}

// checkGift reports whether the utterance names obj with the right article,
// setting corrective feedback otherwise.
func checkGift(c *task.Context, ev *task.Event, obj string) bool {
	switch {
	case ev.Match(1) == IndefArticle(obj):
		return true
	case ev.Match(2) == obj:
		c.SetMessage("Wrong article.")
	default:
		c.SetMessage(fmt.Sprintf("I have asked you to give me %s, not %s.", IndefArticle(obj), IndefArticle(ev.Match(2))))
	}
	return false
}

func takeBack(c *task.Context, obj string) error {
	if err := c.World().AddItem(obj, -1); err != nil {
		return fmt.Errorf("take back %s: %w", obj, err)
	}
	c.SetReward(1, fmt.Sprintf("You gave me %s.", IndefArticle(obj)))
	return nil
}

func (t *PickUpAroundAndGiveTask) Type() *task.Type { return pickUpAndGiveType }
func (t *PickUpAroundAndGiveTask) MaxTime() int {
	tm := t.env.Timing
	return tm.Chars(50) + 4*tm.Pick() + 4*tm.Give() + 4*tm.Move() + 4*tm.Turn()
}

func (t *PickUpAroundAndGiveTask) onInit(c *task.Context, _ *task.Event) error {
	t.obj = t.env.Content.PickObject(t.env.Rand)
	dirs := world.Directions()
	t.dir = dirs[t.env.Rand.Intn(len(dirs))]
	pos := c.World().State().LearnerPos.Add(t.dir.Vector())
	if err := placeTarget(c, t.obj, pos); err != nil {
		return err
	}
	c.State().Set("picked_up", false)
	return c.Handle(task.OnStateChanged(pickedUp(t.obj)), func(c *task.Context, _ *task.Event) error {
		c.State().Set("picked_up", true)
		return nil
	})
}

func (t *PickUpAroundAndGiveTask) onStart(c *task.Context, _ *task.Event) error {
	c.SetMessage(fmt.Sprintf("There is %s %s from you. Pick it up and give it to me.", IndefArticle(t.obj), t.dir))
	return nil
}

func (t *PickUpAroundAndGiveTask) onGive(c *task.Context, ev *task.Event) error {
	if !checkGift(c, ev, t.obj) {
		return nil
	}
	if !c.State().Bool("picked_up") {
		c.SetMessage(fmt.Sprintf("You have to pick up the %s first.", t.obj))
		return nil
	}
	return takeBack(c, t.obj)
}
