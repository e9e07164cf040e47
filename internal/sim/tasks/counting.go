package tasks

import (
	"fmt"
	"strconv"

	"tutorsim.ai/internal/sim/task"
)

// CountingInventoryTask asks how many of an object the learner holds. One
// wrong answer gets a correction; the second ends the episode unrewarded.
type CountingInventoryTask struct {
	env Env
	obj string
}

// CountingInventoryGivingTask walks through count, receive, count, give
// back, count.
type CountingInventoryGivingTask struct {
	env Env
	obj string
}

// Stages of CountingInventoryGivingTask.
const (
	stageFirstCount = iota
	stageSecondCount
	stageGiveBack
	stageFinalCount
)

var (
	countingType       = define("counting_inventory", func(env Env) task.Task { return &CountingInventoryTask{env: env} })
	countingGivingType = define("counting_inventory_giving", func(env Env) task.Task { return &CountingInventoryGivingTask{env: env} })
)

func init() {
	countingType.
		MustHandle(task.OnStart(), task.Method((*CountingInventoryTask).onStart)).
		MustHandle(task.OnMessage(`\.$`), task.Method((*CountingInventoryTask).onAnswer))

	// The give reaction is declared first and consumes the utterance so the
	// catch-all answer reaction never sees "I give you ...".
	countingGivingType.
		MustHandle(task.OnStart(), task.Method((*CountingInventoryGivingTask).onStart)).
		MustHandle(task.OnMessage(givePattern), task.Method((*CountingInventoryGivingTask).onGive)).
		MustHandle(task.OnMessage(`\.$`), task.Method((*CountingInventoryGivingTask).onAnswer))
}

func howMany(obj string) string {
	return fmt.Sprintf("How many %s do you have?", Pluralize(obj, 2))
}

func isCount(ev *task.Event, n int) bool {
	return ev.IsMessage(strconv.Itoa(n) + ".")
}

func (t *CountingInventoryTask) Type() *task.Type { return countingType }
func (t *CountingInventoryTask) MaxTime() int     { return t.env.Timing.Chars(100) }

func (t *CountingInventoryTask) onStart(c *task.Context, _ *task.Event) error {
	t.obj = t.env.Content.PickObject(t.env.Rand)
	c.State().Set("target_obj", t.obj)
	c.State().Set("feedback_given", false)
	c.SetMessage(howMany(t.obj))
	return nil
}

func (t *CountingInventoryTask) onAnswer(c *task.Context, ev *task.Event) error {
	count := c.World().State().Inventory.Count(t.obj)
	switch {
	case isCount(ev, count):
		c.SetReward(1, "Correct!")
	case !c.State().Bool("feedback_given"):
		c.SetMessage(fmt.Sprintf("No, you have %d %s.", count, Pluralize(t.obj, count)))
		c.State().Set("feedback_given", true)
	default:
		c.SetReward(0, "Sorry, that's wrong!")
	}
	return nil
}

func (t *CountingInventoryGivingTask) Type() *task.Type { return countingGivingType }
func (t *CountingInventoryGivingTask) MaxTime() int     { return t.env.Timing.Chars(10000) }

func (t *CountingInventoryGivingTask) onStart(c *task.Context, _ *task.Event) error {
	t.obj = t.env.Content.PickObject(t.env.Rand)
	c.State().Set("target_obj", t.obj)
	c.State().Set("stage", stageFirstCount)
	c.SetMessage(howMany(t.obj))
	return nil
}

func (t *CountingInventoryGivingTask) onGive(c *task.Context, ev *task.Event) error {
	c.Consume()
	if c.State().Int("stage") != stageGiveBack {
		c.SetMessage("I haven't asked you to give me anything.")
		return nil
	}
	if !checkGift(c, ev, t.obj) {
		return nil
	}
	if err := c.World().AddItem(t.obj, -1); err != nil {
		return fmt.Errorf("take back %s: %w", t.obj, err)
	}
	c.SetMessage(fmt.Sprintf("Good! You gave me %s. How many %s do you have now?", IndefArticle(t.obj), Pluralize(t.obj, 2)))
	c.State().Set("stage", stageFinalCount)
	return nil
}

func (t *CountingInventoryGivingTask) onAnswer(c *task.Context, ev *task.Event) error {
	count := c.World().State().Inventory.Count(t.obj)
	correct := isCount(ev, count)
	switch stage := c.State().Int("stage"); stage {
	case stageFinalCount:
		if correct {
			c.SetReward(1, "Correct!")
		} else {
			c.SetMessage("Sorry, that's wrong!")
		}
	case stageFirstCount, stageSecondCount:
		if !correct {
			c.SetMessage("Sorry, that's wrong!")
			return nil
		}
		if stage == stageFirstCount {
			if err := c.World().AddItem(t.obj, 1); err != nil {
				return err
			}
			c.SetMessage(fmt.Sprintf("Correct! I gave you %s. How many %s do you have now?", IndefArticle(t.obj), Pluralize(t.obj, 2)))
			c.State().Set("stage", stageSecondCount)
		} else {
			c.SetMessage(fmt.Sprintf("Correct! Now give the %s back to me.", t.obj))
			c.State().Set("stage", stageGiveBack)
		}
	}
	return nil
}
