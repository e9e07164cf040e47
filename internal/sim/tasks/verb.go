package tasks

import (
	"fmt"
	"regexp"

	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/task"
)

// VerbTask asks the learner to perform an action by saying it.
type VerbTask struct {
	env  Env
	verb catalogs.VerbDef
}

var verbType = define("verb", func(env Env) task.Task { return &VerbTask{env: env} })

func init() {
	verbType.
		MustHandle(task.OnInit(), task.Method((*VerbTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*VerbTask).onStart))
}

func (t *VerbTask) Type() *task.Type { return verbType }
func (t *VerbTask) MaxTime() int     { return 2 * t.env.Timing.Verb() }

func (t *VerbTask) onInit(c *task.Context, _ *task.Event) error {
	t.verb = t.env.Content.PickVerb(t.env.Rand)
	c.State().Set("target_verb", t.verb.Present)
	return nil
}

func (t *VerbTask) onStart(c *task.Context, _ *task.Event) error {
	c.SetMessage(fmt.Sprintf("Say 'I %s' to %s.", t.verb.Present, t.verb.Present))
	past := t.verb.Past
	return c.Handle(task.OnMessage(`I `+regexp.QuoteMeta(t.verb.Present)+`\.$`),
		func(c *task.Context, _ *task.Event) error {
			c.SetReward(1, fmt.Sprintf("You %s.", past))
			return nil
		})
}
