package session

import (
	"time"

	"tutorsim.ai/internal/sim/task"
)

// Recorder receives the episode trace of a session. Calls are made with the
// session lock held and in order.
type Recorder interface {
	EpisodeStarted(EpisodeInfo)
	Dispatched(DispatchRecord)
	EpisodeEnded(Outcome)
}

type EpisodeInfo struct {
	SessionID string    `json:"session_id"`
	Learner   string    `json:"learner"`
	EpisodeID string    `json:"episode_id"`
	Task      string    `json:"task"`
	MaxTime   int       `json:"max_time"`
	At        time.Time `json:"at"`
}

// DispatchRecord is one entry-point call on an episode.
type DispatchRecord struct {
	SessionID string `json:"session_id"`
	EpisodeID string `json:"episode_id"`
	Task      string `json:"task"`
	// Utterance is empty for lifecycle and clock deliveries.
	Utterance  string    `json:"utterance,omitempty"`
	Delivered  []string  `json:"delivered"`
	Feedback   string    `json:"feedback,omitempty"`
	Elapsed    int       `json:"elapsed"`
	Faults     []string  `json:"faults,omitempty"`
	Violations []string  `json:"violations,omitempty"`
	At         time.Time `json:"at"`
}

type Outcome struct {
	SessionID  string    `json:"session_id"`
	Learner    string    `json:"learner"`
	EpisodeID  string    `json:"episode_id"`
	Task       string    `json:"task"`
	Cause      string    `json:"cause"`
	Reward     int       `json:"reward"`
	Rewarded   bool      `json:"rewarded"`
	Elapsed    int       `json:"elapsed"`
	MaxTime    int       `json:"max_time"`
	Faults     int       `json:"faults"`
	Violations int       `json:"violations"`
	Started    time.Time `json:"started"`
	Ended      time.Time `json:"ended"`
}

func dispatchRecord(res task.Result) DispatchRecord {
	d := DispatchRecord{
		Feedback: res.Feedback,
		Elapsed:  res.Elapsed,
	}
	for _, tag := range res.Delivered {
		d.Delivered = append(d.Delivered, tag.String())
	}
	for _, err := range res.Faults {
		d.Faults = append(d.Faults, err.Error())
	}
	for _, err := range res.Violations {
		d.Violations = append(d.Violations, err.Error())
	}
	return d
}
