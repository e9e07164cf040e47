package task

import "tutorsim.ai/internal/sim/world"

type Tag uint8

const (
	TagInit Tag = iota + 1
	TagStart
	TagMessage
	TagStateChanged
	TagTimeout
)

func (t Tag) String() string {
	switch t {
	case TagInit:
		return "init"
	case TagStart:
		return "start"
	case TagMessage:
		return "message"
	case TagStateChanged:
		return "state_changed"
	case TagTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Event is what a reaction receives. It is read-only; snapshot accessors
// return copies.
type Event struct {
	tag  Tag
	text string

	worldBefore, worldAfter world.State
	taskBefore, taskAfter   State

	// groups of the binding that matched this message, set per reaction.
	groups []string
}

func (e *Event) Tag() Tag { return e.tag }

// Text is the learner utterance of a message event.
func (e *Event) Text() string { return e.text }

// IsMessage reports whether the utterance is exactly s.
func (e *Event) IsMessage(s string) bool { return e.tag == TagMessage && e.text == s }

// Match returns capture group i (1-based; 0 is the whole match) of the
// pattern that selected this reaction, or "" when there is no such group.
func (e *Event) Match(i int) string {
	if i < 0 || i >= len(e.groups) {
		return ""
	}
	return e.groups[i]
}

func (e *Event) WorldBefore() world.State { return e.worldBefore.Clone() }
func (e *Event) WorldAfter() world.State  { return e.worldAfter.Clone() }
func (e *Event) TaskBefore() State        { return e.taskBefore.Clone() }
func (e *Event) TaskAfter() State         { return e.taskAfter.Clone() }

func (e *Event) withGroups(groups []string) *Event {
	cp := *e
	cp.groups = groups
	return &cp
}
