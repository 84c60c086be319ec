package questionpooler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failures the pool reports
type ErrorKind int

const (
	KindIO ErrorKind = iota + 1
	KindInvalidArgument
	KindOutOfRange
	KindUnknownCategory
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io error"
	case KindInvalidArgument:
		return "invalid argument"
	case KindOutOfRange:
		return "out of range"
	case KindUnknownCategory:
		return "unknown category"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is checks against a PoolError's kind
var (
	ErrIO              = errors.New(KindIO.String())
	ErrInvalidArgument = errors.New(KindInvalidArgument.String())
	ErrOutOfRange      = errors.New(KindOutOfRange.String())
	ErrUnknownCategory = errors.New(KindUnknownCategory.String())
)

var errNilQuestion = errors.New("question is nil")

// PoolError carries the structured context of a failed pool operation
type PoolError struct {
	Op          string
	Kind        ErrorKind
	PlayerIndex int
	Players     int
	Requested   int
	Category    Category
	Resource    string
	Err         error
}

func (e *PoolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())

	switch e.Kind {
	case KindOutOfRange:
		fmt.Fprintf(&b, ": player index %d, player count %d", e.PlayerIndex, e.Players)
	case KindUnknownCategory:
		fmt.Fprintf(&b, ": %q", string(e.Category))
	case KindIO:
		fmt.Fprintf(&b, ": %s", e.Resource)
	case KindInvalidArgument:
		if e.Err == nil {
			fmt.Fprintf(&b, ": requested %d", e.Requested)
		}
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PoolError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *PoolError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrOutOfRange:
		return e.Kind == KindOutOfRange
	case ErrUnknownCategory:
		return e.Kind == KindUnknownCategory
	}
	return false
}

// KindOf reports the kind of a PoolError anywhere in err's chain, or zero
func KindOf(err error) ErrorKind {
	var pe *PoolError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
