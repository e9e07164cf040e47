package task

import (
	"errors"
	"fmt"
)

var (
	ErrSealed          = errors.New("task type already has episodes")
	ErrDuplicateType   = errors.New("task type already defined")
	ErrBadTrigger      = errors.New("malformed trigger")
	ErrNilReaction     = errors.New("nil reaction")
	ErrOutsideDispatch = errors.New("context used outside its dispatch")

	ErrTerminated      = errors.New("episode terminated")
	ErrOutOfOrder      = errors.New("event out of lifecycle order")
	ErrSecondReward    = errors.New("terminal reward already emitted")
	ErrNegativeReward  = errors.New("negative reward")
	ErrImpurePredicate = errors.New("state predicate mutated its snapshot")
	ErrNegativeTime    = errors.New("negative time advance")
)

// RegistrationError reports a binding that could not be registered.
type RegistrationError struct {
	Type    string
	Trigger string
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s on %s: %v", e.Trigger, e.Type, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// ContractViolation is recorded against an episode when a caller or a
// reaction breaks the engine's rules. The episode is not corrupted by it.
type ContractViolation struct {
	Episode string
	Event   Tag
	Err     error
}

func (e *ContractViolation) Error() string {
	if e.Event == 0 {
		return fmt.Sprintf("episode %s: contract violation: %v", e.Episode, e.Err)
	}
	return fmt.Sprintf("episode %s: contract violation on %s: %v", e.Episode, e.Event, e.Err)
}

func (e *ContractViolation) Unwrap() error { return e.Err }

// HandlerFault wraps an error returned (or a panic raised) by one reaction.
type HandlerFault struct {
	Episode string
	Event   Tag
	Binding string
	Err     error
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("episode %s: %s handler %s: %v", e.Episode, e.Event, e.Binding, e.Err)
}

func (e *HandlerFault) Unwrap() error { return e.Err }
