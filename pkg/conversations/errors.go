package conversations

import "errors"

var (
	ErrSelfReference   = errors.New("cannot start a conversation with yourself")
	ErrEmptyContent    = errors.New("message is empty")
	ErrNotFound        = errors.New("conversation not found")
	ErrNotAParticipant = errors.New("not a participant")
	ErrUnknownUser     = errors.New("unknown user")
)
