package task

import (
	"errors"
	"testing"

	"tutorsim.ai/internal/sim/world"
)

func TestRegistry_Define(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Define("b"); err != nil {
		t.Fatalf("Define: %v", err)
	}
	r.MustDefine("a")
	_, err := r.Define("a")
	var re *RegistrationError
	if !errors.As(err, &re) || !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("duplicate define: %v", err)
	}
	if _, err := r.Define(""); err == nil {
		t.Fatalf("expected empty name rejected")
	}
	if got := r.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("names=%v", got)
	}
	if typ, ok := r.Lookup("a"); !ok || typ.Name() != "a" {
		t.Fatalf("lookup a: %v %v", typ, ok)
	}
}

func TestType_HandleRejectsMalformed(t *testing.T) {
	typ := newType(t, "bad")
	cases := []struct {
		name string
		trig Trigger
		r    Reaction
	}{
		{"pattern", OnMessage(`I give you (an? (\w+)\.$`), noop},
		{"nil predicate", OnStateChanged(nil), noop},
		{"nil reaction", OnStart(), nil},
		{"zero trigger", Trigger{}, noop},
	}
	for _, c := range cases {
		err := typ.Handle(c.trig, c.r)
		var re *RegistrationError
		if !errors.As(err, &re) {
			t.Fatalf("%s: expected RegistrationError, got %v", c.name, err)
		}
		if re.Type != "bad" {
			t.Fatalf("%s: type=%q", c.name, re.Type)
		}
	}
}

func TestType_SealedAfterFirstEpisode(t *testing.T) {
	typ := newType(t, "sealed")
	mustHandle(t, typ, OnStart(), noop)
	if typ.Sealed() {
		t.Fatalf("sealed before any episode")
	}
	newEpisode(t, typ, newWorld(t), 10)
	if !typ.Sealed() {
		t.Fatalf("not sealed after episode")
	}
	err := typ.Handle(OnMessage(`x`), noop)
	if !errors.Is(err, ErrSealed) {
		t.Fatalf("err=%v", err)
	}
}

func TestState_CloneAndEqual(t *testing.T) {
	s := State{}
	s.Set("count", 2)
	s.Set("name", "apple")
	cp := s.Clone()
	if !cp.Equal(s) {
		t.Fatalf("clone differs")
	}
	cp.Set("count", 3)
	if s.Int("count") != 2 || cp.Equal(s) {
		t.Fatalf("clone aliases original")
	}
	if s.Int("missing") != 0 || s.String("count") != "" {
		t.Fatalf("typed getters should default to zero values")
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-comparable value")
		}
	}()
	s.Set("bad", []int{1})
}

func TestState_SetRejectsReferences(t *testing.T) {
	n := 1
	type holder struct {
		Name string
		P    *int
	}
	for name, v := range map[string]any{
		"pointer": &n,
		"chan":    make(chan int),
		"struct":  holder{Name: "x", P: &n},
		"array":   [2]*int{&n, nil},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			State{}.Set(name, v)
		}()
	}
	s := State{}
	s.Set("pos", world.Vec{X: 1})
	s.Set("pair", [2]string{"a", "b"})
	if len(s) != 2 {
		t.Fatalf("plain values rejected: %v", s.Names())
	}
}
