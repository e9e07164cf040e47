// Package task is the event dispatch and lifecycle engine for teacher tasks.
//
// A task Type carries static handler bindings declared once at definition
// time. An Episode binds one Task instance to one World, delivers Init, Start,
// Message, StateChanged and Timeout events in order, and applies the effects
// reactions request through their Context: feedback text, a terminal reward,
// new instance-scoped bindings, or consuming the event.
//
// Events are created only by the Episode's entry points (Init, Start,
// Message, Tick, Advance); callers feed world ticks and learner utterances
// through those and read the per-call Result.
package task
