package main

import (
	"bytes"
	"strings"
	"testing"

	persistlog "tutorsim.ai/internal/persistence/log"
	"tutorsim.ai/internal/sim/session"
)

func TestSummary_AggregatesByTask(t *testing.T) {
	s := newSummary("")
	s.add(persistlog.TraceEntry{Started: &session.EpisodeInfo{SessionID: "S", EpisodeID: "E1", Task: "verb"}})
	s.add(persistlog.TraceEntry{Dispatch: &session.DispatchRecord{EpisodeID: "E1", Task: "verb", Faults: []string{"x"}}})
	s.add(persistlog.TraceEntry{Ended: &session.Outcome{EpisodeID: "E1", Task: "verb", Cause: "reward", Reward: 1}})
	s.add(persistlog.TraceEntry{Started: &session.EpisodeInfo{SessionID: "S", EpisodeID: "E2", Task: "give"}})

	var buf bytes.Buffer
	s.write(&buf)
	out := buf.String()
	if !strings.Contains(out, "sessions=1 episodes=2 reward=1 faults=1 violations=0 unfinished=1") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if s.tasks["verb"].causes["reward"] != 1 || s.tasks["give"].started != 1 {
		t.Fatalf("rows=%+v", s.tasks)
	}
}

func TestSummary_OneEpisode(t *testing.T) {
	s := newSummary("E1")
	s.add(persistlog.TraceEntry{Started: &session.EpisodeInfo{EpisodeID: "E1", Task: "verb", MaxTime: 10}})
	s.add(persistlog.TraceEntry{Dispatch: &session.DispatchRecord{EpisodeID: "E1", Delivered: []string{"message"}, Utterance: "I sing.", Feedback: "You sang."}})
	s.add(persistlog.TraceEntry{Dispatch: &session.DispatchRecord{EpisodeID: "E9", Utterance: "other"}})
	s.add(persistlog.TraceEntry{Ended: &session.Outcome{EpisodeID: "E1", Cause: "reward", Reward: 1}})

	var buf bytes.Buffer
	s.write(&buf)
	out := buf.String()
	if strings.Contains(out, "other") || !strings.Contains(out, `"I sing." -> "You sang."`) || !strings.Contains(out, "end cause=reward") {
		t.Fatalf("unexpected episode trace:\n%s", out)
	}
}
