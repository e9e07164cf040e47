package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Channel.
	ErrTooLong = "E_UTTERANCE_TOO_LONG"

	// Session state.
	ErrNotStarted    = "E_SESSION_NOT_STARTED"
	ErrSessionClosed = "E_SESSION_CLOSED"
	ErrCurriculum    = "E_CURRICULUM"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrTooLong:         {},
	ErrNotStarted:      {},
	ErrSessionClosed:   {},
	ErrCurriculum:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
