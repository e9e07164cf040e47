package task

import (
	"fmt"
	"reflect"
	"sort"

	"tutorsim.ai/internal/sim/world"
)

// State holds the named fields a task instance tracks (targets, initial
// counts, captured positions). Values must be comparable plain values so a
// shallow copy is a full snapshot; Set panics on anything else.
type State map[string]any

func (s State) Set(name string, v any) {
	if v != nil {
		rt := reflect.TypeOf(v)
		if !rt.Comparable() {
			panic(fmt.Sprintf("task state %q: %T is not comparable", name, v))
		}
		if holdsReference(rt) {
			panic(fmt.Sprintf("task state %q: %T holds a reference", name, v))
		}
	}
	s[name] = v
}

// holdsReference reports whether values of rt can alias memory outside the
// State, so that writes through them would escape a Clone.
func holdsReference(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan, reflect.Func, reflect.Interface:
		return true
	case reflect.Array:
		return holdsReference(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if holdsReference(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func (s State) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

func (s State) Int(name string) int {
	v, _ := s[name].(int)
	return v
}

func (s State) String(name string) string {
	v, _ := s[name].(string)
	return v
}

func (s State) Bool(name string) bool {
	v, _ := s[name].(bool)
	return v
}

func (s State) Vec(name string) world.Vec {
	v, _ := s[name].(world.Vec)
	return v
}

func (s State) Dir(name string) world.Direction {
	v, _ := s[name].(world.Direction)
	return v
}

// Names returns the field names in sorted order.
func (s State) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
