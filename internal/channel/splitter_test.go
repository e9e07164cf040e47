package channel

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSplitter_Feed(t *testing.T) {
	s := NewSplitter(64)
	steps := []struct {
		in   string
		want []string
	}{
		{"I turn", nil},
		{" left.", []string{"I turn left."}},
		{" I move forward. I pick", []string{"I move forward."}},
		{" up the apple.3.", []string{"I pick up the apple.", "3."}},
		{"What? Yes!", []string{"What?", "Yes!"}},
		{" .", nil},
	}
	for _, st := range steps {
		got, err := s.Feed(st.in)
		if err != nil {
			t.Fatalf("Feed(%q): %v", st.in, err)
		}
		if !reflect.DeepEqual(got, st.want) {
			t.Fatalf("Feed(%q)=%q want %q", st.in, got, st.want)
		}
	}
	if s.Pending() != "" {
		t.Fatalf("pending=%q", s.Pending())
	}
}

func TestSplitter_Overflow(t *testing.T) {
	s := NewSplitter(8)
	got, err := s.Feed("ok. this is far too long")
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 1 || got[0] != "ok." {
		t.Fatalf("got=%q", got)
	}
	if s.Pending() != "" {
		t.Fatalf("buffer kept after overflow")
	}
	if got, err := s.Feed("fine."); err != nil || len(got) != 1 {
		t.Fatalf("after overflow: %q %v", got, err)
	}
}

func TestSplitter_OverflowAcrossFragments(t *testing.T) {
	s := NewSplitter(512)
	if got, err := s.Feed(strings.Repeat("x", 500)); err != nil || got != nil {
		t.Fatalf("first fragment: %q %v", got, err)
	}
	got, err := s.Feed(strings.Repeat("y", 500) + ". I turn left.")
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 1 || got[0] != "I turn left." {
		t.Fatalf("got=%q", got)
	}
	if s.Pending() != "" {
		t.Fatalf("pending=%d bytes", len(s.Pending()))
	}
}

func TestSplitter_OverlongSentenceInOneFragment(t *testing.T) {
	s := NewSplitter(512)
	got, err := s.Feed("Hi. " + strings.Repeat("z", 4000) + ".")
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 1 || got[0] != "Hi." {
		t.Fatalf("got=%q", got)
	}
	for _, u := range got {
		if len(u) > 512 {
			t.Fatalf("utterance of %d bytes passed the bound", len(u))
		}
	}
}

func TestSplitter_ExactBound(t *testing.T) {
	s := NewSplitter(8)
	got, err := s.Feed("abcdefg.")
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%q err=%v", got, err)
	}
}
