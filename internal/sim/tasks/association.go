package tasks

import (
	"fmt"
	"regexp"
	"strings"

	"tutorsim.ai/internal/sim/task"
)

// AssociationTask states a few random "name is property" facts and asks
// for the property of one name.
type AssociationTask struct {
	env    Env
	names  []string
	props  []string
	target int
}

var associationType = define("association", func(env Env) task.Task { return &AssociationTask{env: env} })

func init() {
	associationType.
		MustHandle(task.OnInit(), task.Method((*AssociationTask).onInit)).
		MustHandle(task.OnStart(), task.Method((*AssociationTask).onStart))
}

func (t *AssociationTask) Type() *task.Type { return associationType }

// MaxTime leaves room for the facts to be read and answered twice over.
func (t *AssociationTask) MaxTime() int {
	a := t.env.Content.Association
	perFact := 2*a.WordLength + len(" is , ")
	return t.env.Timing.Chars(50 + 2*a.Names*perFact)
}

func (t *AssociationTask) onInit(c *task.Context, _ *task.Event) error {
	a := t.env.Content.Association
	seen := map[string]bool{}
	for len(t.names) < a.Names {
		name := randomWord(t, a.WordLength)
		if seen[name] {
			continue
		}
		seen[name] = true
		t.names = append(t.names, name)
		t.props = append(t.props, randomWord(t, a.WordLength))
	}
	t.target = t.env.Rand.Intn(len(t.names))
	c.State().Set("target_name", t.names[t.target])
	c.State().Set("target_prop", t.props[t.target])
	return nil
}

func (t *AssociationTask) onStart(c *task.Context, _ *task.Event) error {
	facts := make([]string, len(t.names))
	for i := range t.names {
		facts[i] = fmt.Sprintf("%s is %s", t.names[i], t.props[i])
	}
	name, prop := t.names[t.target], t.props[t.target]
	c.SetMessage(fmt.Sprintf("%s; what is %s like?", strings.Join(facts, ", "), name))
	pattern := regexp.QuoteMeta(name) + ` is ` + regexp.QuoteMeta(prop) + `\.?$`
	return c.Handle(task.OnMessage(pattern), func(c *task.Context, _ *task.Event) error {
		c.SetReward(1, "")
		return nil
	})
}

func randomWord(t *AssociationTask, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + t.env.Rand.Intn(26)))
	}
	return b.String()
}
