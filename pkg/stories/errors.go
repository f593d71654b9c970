package stories

import "errors"

var (
	ErrEmptyContent  = errors.New("story has no content")
	ErrTooManyImages = errors.New("too many images")
	ErrQuotaExceeded = errors.New("daily image quota exceeded")
	ErrInvalidKind   = errors.New("invalid reaction kind")
	ErrNotFound      = errors.New("story not found")
	ErrNotAuthorized = errors.New("not authorized")
)
