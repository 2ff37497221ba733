package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	t.Parallel()

	for kind := KindNone; kind < kindCount; kind++ {
		env := Envelope{Kind: kind, Message: "bad | token `x`"}
		assert.Equal(t, env, DecodeEnvelope(env.Encode()))
	}
}

func TestDecodeEnvelope_Uninspectable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"missing message", []byte("1|")},
		{"garbage kind", []byte("x|msg|")},
		{"out of range kind", wire.NewEncoder(0).Int(17).String("m").Bytes()},
		{"trailing", []byte("1|m|2|")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, KindUnknown, DecodeEnvelope(tt.input).Kind)
		})
	}
}

func TestResult_ExactlyOneChannel(t *testing.T) {
	t.Parallel()

	ok := Ok(5)
	value, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 5, value)
	assert.Equal(t, KindNone, ok.Envelope().Kind)

	failed := Fail[int](Envelope{Kind: KindSource, Message: "unexpected token"})
	_, err = failed.Unwrap()
	require.ErrorIs(t, err, ErrSource)
	assert.False(t, failed.Ok())

	var zero Result[int]
	_, err = zero.Unwrap()
	require.ErrorIs(t, err, ErrUnknown)

	none := Fail[int](Envelope{})
	assert.Equal(t, KindUnknown, none.Envelope().Kind)
}

func TestError_IsAndMessage(t *testing.T) {
	t.Parallel()

	err := Fail[string](Envelope{Kind: KindGrammar, Message: "3 errors"}).At("generate", handle.Invalid).Err()

	require.ErrorIs(t, err, ErrGrammar)
	assert.NotErrorIs(t, err, ErrSource)
	assert.Equal(t, "generate: grammar-error: 3 errors", err.Error())

	var relayErr *Error
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "generate", relayErr.Op)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindNone, Classify(nil).Kind)
	assert.Equal(t, KindGrammar, Classify(fmt.Errorf("wrapped: %w", Grammarf("bad"))).Kind)
	assert.Equal(t, KindSource, Classify(Sourcef("bad")).Kind)
	assert.Equal(t, KindUseAfterFree, Classify(fmt.Errorf("get: %w", handle.ErrUseAfterFree)).Kind)
	assert.Equal(t, KindUnknown, Classify(errors.New("io")).Kind)
	assert.Equal(t, KindUnknown, Classify(handle.ErrExhausted).Kind)
}

func TestInvoke_ValueAndFailure(t *testing.T) {
	t.Parallel()

	r := New()
	ctx := context.Background()

	res := Invoke(ctx, r, "get_error_count", handle.Invalid, func(context.Context) (int, error) {
		return 3, nil
	})

	count, err := res.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	res = Invoke(ctx, r, "parse", handle.Invalid, func(context.Context) (int, error) {
		return 0, Sourcef("2 errors")
	})

	_, err = res.Unwrap()
	require.ErrorIs(t, err, ErrSource)
	assert.Contains(t, err.Error(), "parse")
}

func TestInvoke_RecoversPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	res := Invoke(context.Background(), r, "parse", handle.Invalid, func(context.Context) (bool, error) {
		panic("engine state corrupted")
	})

	_, err := res.Unwrap()
	require.ErrorIs(t, err, ErrUnknown)
	assert.Contains(t, err.Error(), "engine state corrupted")
	assert.Contains(t, buf.String(), "boundary call panicked")
	assert.Contains(t, buf.String(), "op=parse")
}
