package wire

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnknownKind is returned by Decode when the leading kind byte has no
// registered message type. Callers should treat this as "no handler", not as
// a malformed frame — future server versions may add kinds an older build
// doesn't understand yet.
var ErrUnknownKind = errors.New("wire: unknown message kind")

// ErrStringTooLong is returned when a bounded string field exceeds its limit,
// either while encoding (caller handed us too much) or decoding (peer sent a
// length prefix larger than the field allows).
var ErrStringTooLong = errors.New("wire: string exceeds field bound")

// ErrBufferTooShort is returned by decode when the input slice ends before a
// fixed-size field or a length-prefixed field's declared length.
var ErrBufferTooShort = errors.New("wire: buffer too short")

// CapacityError is returned by Encode when the caller's estimated capacity
// undershoots the actual serialized size. It is recoverable: the caller can
// retry with a larger estimate. It carries the call site that made the bad
// estimate so a log line pinpoints which message type is chronically
// under-sized rather than crashing the connection that triggered it.
type CapacityError struct {
	Estimated int
	Needed    int
	File      string
	Line      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("wire: encode buffer underestimated at %s:%d (estimated %d, needed at least %d)",
		e.File, e.Line, e.Estimated, e.Needed)
}

func newCapacityError(estimated, needed int) *CapacityError {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	return &CapacityError{Estimated: estimated, Needed: needed, File: file, Line: line}
}
