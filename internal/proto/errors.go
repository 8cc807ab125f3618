package proto

import "errors"

var (
	ErrUnknownKind     = errors.New("unknown message kind")
	ErrFieldTooShort   = errors.New("field shorter than the minimum length")
	ErrFieldTooLong    = errors.New("field longer than the maximum length")
	ErrFieldCharset    = errors.New("field contains a character outside its allowed charset")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrUnterminated    = errors.New("string field missing NUL terminator")
	ErrUnsupportedKind = errors.New("kind not supported on this wire encoding")
)
