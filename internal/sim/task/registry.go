package task

import (
	"fmt"
	"sort"
	"sync"
)

// Task is a task instance. Instances are used for one episode only.
type Task interface {
	Type() *Type
	// MaxTime is the episode budget in simulated time units.
	MaxTime() int
}

// Registry names the task types known to a curriculum.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]*Type{}}
}

func (r *Registry) Define(name string) (*Type, error) {
	if name == "" {
		return nil, &RegistrationError{Type: name, Trigger: "define", Err: fmt.Errorf("empty type name")}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; ok {
		return nil, &RegistrationError{Type: name, Trigger: "define", Err: ErrDuplicateType}
	}
	t := &Type{name: name}
	r.types[name] = t
	return t, nil
}

// MustDefine is Define for package-level task tables; it panics on error.
func (r *Registry) MustDefine(name string) *Type {
	t, err := r.Define(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Type holds the static bindings shared by every instance of a task type.
// The table is sealed when the first episode of the type is created.
type Type struct {
	name string

	mu     sync.Mutex
	sealed bool
	static []binding
}

func (t *Type) Name() string { return t.name }

// Handle registers a static binding. Bindings run in declaration order.
func (t *Type) Handle(trig Trigger, r Reaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return &RegistrationError{Type: t.name, Trigger: trig.String(), Err: ErrSealed}
	}
	b, err := compileBinding(t.name, "static", len(t.static), trig, r)
	if err != nil {
		return err
	}
	t.static = append(t.static, b)
	return nil
}

func (t *Type) MustHandle(trig Trigger, r Reaction) *Type {
	if err := t.Handle(trig, r); err != nil {
		panic(err)
	}
	return t
}

// Sealed reports whether an episode of this type has been created.
func (t *Type) Sealed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sealed
}

// seal freezes the static table and returns it. The returned slice is never
// appended to again.
func (t *Type) seal() []binding {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sealed = true
	return t.static[:len(t.static):len(t.static)]
}
