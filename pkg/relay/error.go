package relay

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
)

// Sentinels matched by [Error] through errors.Is.
var (
	ErrGrammar      = errors.New("grammar error")
	ErrSource       = errors.New("source error")
	ErrUnknown      = errors.New("unknown error")
	ErrUseAfterFree = errors.New("use after free")
)

// Error is a failed boundary call as seen by the host.
type Error struct {
	Kind    Kind
	Op      string
	Handle  handle.Handle
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}

	if e.Message == "" {
		return prefix
	}

	return prefix + ": " + e.Message
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrGrammar:
		return e.Kind == KindGrammar
	case ErrSource:
		return e.Kind == KindSource
	case ErrUnknown:
		return e.Kind == KindUnknown
	case ErrUseAfterFree:
		return e.Kind == KindUseAfterFree
	default:
		return false
	}
}

// Envelope returns the exception envelope carrying this error.
func (e *Error) Envelope() Envelope {
	return Envelope{Kind: e.Kind, Message: e.Message}
}

// Grammarf reports a malformed grammar.
func Grammarf(format string, args ...any) *Error {
	return &Error{Kind: KindGrammar, Message: fmt.Sprintf(format, args...)}
}

// Sourcef reports input rejected by a valid grammar.
func Sourcef(format string, args ...any) *Error {
	return &Error{Kind: KindSource, Message: fmt.Sprintf(format, args...)}
}

// Unknownf reports a protocol or state failure.
func Unknownf(format string, args ...any) *Error {
	return &Error{Kind: KindUnknown, Message: fmt.Sprintf(format, args...)}
}

// Classify maps any error to an envelope: relay errors keep their kind,
// registry lifetime errors become use-after-free and everything else is
// unknown.
func Classify(err error) Envelope {
	if err == nil {
		return Envelope{}
	}

	var relayErr *Error
	if errors.As(err, &relayErr) && relayErr.Kind != KindNone {
		return Envelope{Kind: relayErr.Kind, Message: relayErr.Message}
	}

	if errors.Is(err, handle.ErrUseAfterFree) {
		return Envelope{Kind: KindUseAfterFree, Message: err.Error()}
	}

	return Envelope{Kind: KindUnknown, Message: err.Error()}
}
