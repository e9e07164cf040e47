package learner

import (
	"reflect"
	"testing"

	"tutorsim.ai/internal/sim/world"
)

func drain(l *Learner) []string {
	var out []string
	for l.Pending() > 0 {
		out = append(out, l.Next())
	}
	return out
}

func TestLearner_Plans(t *testing.T) {
	cases := []struct {
		name   string
		facing world.Direction
		text   string
		want   []string
	}{
		{"verb", world.North, "Say 'I dance' to dance.", []string{"I dance."}},
		{"turn", world.North, "Turn left.", []string{"I turn left."}},
		{"side step", world.North, "Move right.", []string{"I turn right.", "I move forward."}},
		{"absolute", world.North, "You are facing east, move north.", []string{"I turn left.", "I move forward."}},
		{"behind", world.North, "There is a ball south from you. Pick up the ball.",
			[]string{"I turn right.", "I turn right.", "I move forward.", "I pick up the ball."}},
		{"fetch", world.West, "There is an apple north from you. Pick it up and give it to me.",
			[]string{"I turn right.", "I move forward.", "I pick up the apple.", "I give you an apple."}},
		{"in front", world.North, "There is a carrot in front of you. Pick up the carrot.",
			[]string{"I move forward.", "I pick up the carrot."}},
		{"give back", world.North, `I gave you an apple. Give it back to me by saying "I give you an apple".`,
			[]string{"I give you an apple."}},
		{"association", world.North, "abc is xyz, def is uvw; what is def like?", []string{"def is uvw."}},
		{"unknown", world.North, "Sing me a song.", nil},
	}
	for _, c := range cases {
		l := New(c.facing, nil)
		l.Hear(KindInstruction, c.text)
		if got := drain(l); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%s: got %q want %q", c.name, got, c.want)
		}
	}
}

func TestLearner_TracksInventory(t *testing.T) {
	l := New(world.North, map[string]int{"apple": 2})
	l.Hear(KindWorld, "You picked up the apple.")
	l.Hear(KindFeedback, "You picked up the apple.")
	if l.Holding("apple") != 3 {
		t.Fatalf("apple=%d", l.Holding("apple"))
	}
	l.Hear(KindInstruction, "How many apples do you have?")
	if got := l.Next(); got != "3." {
		t.Fatalf("answer=%q", got)
	}
	l.Hear(KindFeedback, "Correct! I gave you an apple. How many apples do you have now?")
	if got := l.Next(); got != "4." {
		t.Fatalf("answer=%q", got)
	}
	l.Hear(KindFeedback, "Good! You gave me an apple. How many apples do you have now?")
	if got := l.Next(); got != "3." {
		t.Fatalf("answer=%q", got)
	}
	l.Hear(KindFeedback, "No, you have 1 banana.")
	if l.Holding("banana") != 1 || l.Next() != "1." {
		t.Fatalf("correction not applied")
	}
}

func TestLearner_EpisodeClearsPlan(t *testing.T) {
	l := New(world.North, nil)
	l.Hear(KindInstruction, "Move left.")
	l.Hear(KindEpisode, "")
	if l.Pending() != 0 || l.Next() != Idle {
		t.Fatalf("plan survived a new episode")
	}
	if l.Facing() != world.North {
		t.Fatalf("facing=%s after a dropped turn", l.Facing())
	}
	l.Hear(KindInstruction, "Turn right.")
	l.Next()
	if l.Facing() != world.East {
		t.Fatalf("facing=%s", l.Facing())
	}
}
