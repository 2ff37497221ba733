// Package relay delivers the outcome of every boundary call as exactly one
// of a value or a typed exception envelope, and turns envelopes into Go
// errors on the host side.
//
// In process the envelope travels inside a [Result]. Hosts that reach an
// engine through a process or foreign-function boundary carry it in the
// wire form of [Envelope.Encode] and read it back with [DecodeEnvelope].
package relay

import (
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

// Kind discriminates exception envelopes.
type Kind int

// Exception kinds. The numeric values are part of the wire format.
const (
	KindNone Kind = iota
	KindGrammar
	KindSource
	KindUnknown
	KindUseAfterFree
	kindCount
)

var kindNames = [kindCount]string{
	KindNone:         "none",
	KindGrammar:      "grammar-error",
	KindSource:       "source-error",
	KindUnknown:      "unknown-error",
	KindUseAfterFree: "use-after-free",
}

// String returns the wire-independent name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// Envelope is the exception channel of one boundary call.
type Envelope struct {
	Kind    Kind
	Message string
}

// Encode serializes the envelope as kind then message, for hosts that see
// the exception channel as bytes rather than as a Result.
func (env Envelope) Encode() []byte {
	return wire.NewEncoder(len(env.Message) + 4).Int(int64(env.Kind)).String(env.Message).Bytes()
}

// DecodeEnvelope reads an envelope. It never fails: a buffer that cannot be
// inspected, or that names an unknown kind, yields an unknown-error envelope.
func DecodeEnvelope(buf []byte) Envelope {
	dec := wire.NewDecoder(buf)

	code, err := dec.Int()
	if err != nil {
		return Envelope{Kind: KindUnknown, Message: "uninspectable exception: " + err.Error()}
	}

	msg, err := dec.String()
	if err != nil {
		return Envelope{Kind: KindUnknown, Message: "uninspectable exception: " + err.Error()}
	}

	if dec.Finish() != nil {
		return Envelope{Kind: KindUnknown, Message: "uninspectable exception: trailing bytes"}
	}

	kind := Kind(code)
	if kind < 0 || kind >= kindCount {
		return Envelope{Kind: KindUnknown, Message: fmt.Sprintf("unknown exception kind %d: %s", code, msg)}
	}

	return Envelope{Kind: kind, Message: msg}
}
