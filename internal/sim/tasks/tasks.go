// Package tasks holds the curriculum's task content: each task type declares
// its static reactions at package init and builds one instance per episode.
package tasks

import (
	"errors"
	"fmt"
	"math/rand"

	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/task"
)

// Env is what a task instance may draw on besides its world.
type Env struct {
	Rand    *rand.Rand
	Content *catalogs.Catalogs
	Timing  Timing
}

func (e Env) validate() error {
	if e.Rand == nil {
		return errors.New("tasks: env has no rand source")
	}
	if e.Content == nil {
		return errors.New("tasks: env has no content catalogs")
	}
	if e.Timing.Char <= 0 {
		return fmt.Errorf("tasks: time_char must be > 0 (got %d)", e.Timing.Char)
	}
	return nil
}

// Registry holds every task type in this package.
var Registry = task.NewRegistry()

type factory func(env Env) task.Task

var factories = map[string]factory{}

func define(name string, f factory) *task.Type {
	t := Registry.MustDefine(name)
	factories[name] = f
	return t
}

// New builds a fresh instance of the named task.
func New(name string, env Env) (task.Task, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("tasks: unknown task %q", name)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return f(env), nil
}

func Names() []string { return Registry.Names() }

func pickTurn(r *rand.Rand) (word string, steps int) {
	if r.Intn(2) == 0 {
		return "left", -1
	}
	return "right", 1
}
