package trace

import "errors"

var (
	// ErrUnknownOp is returned for a step whose op is not recognised.
	ErrUnknownOp = errors.New("trace: unknown op")
	// ErrUnknownType is returned when a render step names an unregistered type.
	ErrUnknownType = errors.New("trace: unknown type")
	// ErrInvalidPattern is returned for a pattern that has no supported shape.
	ErrInvalidPattern = errors.New("trace: invalid pattern")
)
