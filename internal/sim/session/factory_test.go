package session

import (
	"testing"

	"tutorsim.ai/internal/sim/catalogs"
	"tutorsim.ai/internal/sim/tuning"
)

func TestFactory_OpensIndependentSessions(t *testing.T) {
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tu := tuning.Defaults()
	tu.Tasks = []string{"verb"}
	rec := &memRecorder{}
	f, err := NewFactory(tu, cats, WithFactoryRecorders(rec))
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}

	s1, w1, err := f.Open("a")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s2, w2, err := f.Open("b")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s1.ID() == s2.ID() || w1 == w2 {
		t.Fatalf("sessions must not share ids or worlds")
	}
	if w1.ID() != s1.ID() {
		t.Fatalf("world id %q != session id %q", w1.ID(), s1.ID())
	}
	if _, err := s1.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if len(rec.started) != 1 || rec.started[0].Learner != "a" || rec.started[0].Task != "verb" {
		t.Fatalf("recorder not wired: %+v", rec.started)
	}
}

func TestFactory_EmptyCurriculumUsesAllTasks(t *testing.T) {
	cats, _ := catalogs.Default()
	f, err := NewFactory(tuning.Defaults(), cats)
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	if len(f.Tasks()) != 13 {
		t.Fatalf("tasks=%v", f.Tasks())
	}
}

func TestFactory_RejectsUnknownTask(t *testing.T) {
	cats, _ := catalogs.Default()
	tu := tuning.Defaults()
	tu.Tasks = []string{"verb", "juggling"}
	if _, err := NewFactory(tu, cats); err == nil {
		t.Fatalf("expected error for unknown task")
	}
	if _, err := NewFactory(tuning.Defaults(), nil); err == nil {
		t.Fatalf("expected error for nil content")
	}
}
