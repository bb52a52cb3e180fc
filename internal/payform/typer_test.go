package payform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/browser/browsertest"
)

func TestAccepted(t *testing.T) {
	tests := []struct {
		name                          string
		before, after, want, minDelta int
		ok                            bool
	}{
		{"full entry", 0, 16, 16, 12, true},
		{"formatted entry", 0, 19, 16, 12, true},
		{"truncated but half", 0, 8, 16, 12, true},
		{"under half", 0, 7, 16, 12, false},
		{"nothing typed", 0, 0, 5, 4, false},
		{"odd length rounds up", 0, 3, 5, 4, true},
		{"delta met on prefilled input", 2, 6, 4, 4, true},
		{"empty text", 0, 0, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, accepted(tt.before, tt.after, tt.want, tt.minDelta))
		})
	}
}

func typeInto(t *testing.T, in *browsertest.Input, native browser.NativeKeyboard, text string, minDelta int) (Outcome, error) {
	t.Helper()
	doc := browsertest.NewPage([]*browsertest.Input{in})
	els, err := doc.Query(in.Selectors[0])
	require.NoError(t, err)
	require.Len(t, els, 1)
	return NewTyper(time.Microsecond, native, zaptest.NewLogger(t)).Type(context.Background(), els[0], text, minDelta)
}

func TestType_Succeeds(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	out, err := typeInto(t, in, nil, "123", 3)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out)
	assert.Equal(t, "123", in.Value)
	assert.Equal(t, 1, in.Scrolls)
	assert.Equal(t, 1, in.Clicks)
	assert.Zero(t, in.Focuses)
	assert.Equal(t, 3, in.DOMPresses)
}

func TestType_InterceptedClickFocuses(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	in.InterceptClick = true
	out, err := typeInto(t, in, nil, "123", 3)
	require.NoError(t, err)
	assert.Equal(t, Succeeded, out)
	assert.Equal(t, 1, in.Focuses)
}

func TestType_Fallback(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	in.IgnoreSynthetic = true
	doc := browsertest.NewPage([]*browsertest.Input{in})
	_, kb := browsertest.NewTree(doc)
	els, err := doc.Query(`#cvc`)
	require.NoError(t, err)

	out, err := NewTyper(time.Microsecond, kb, nil).Type(context.Background(), els[0], "123", 3)
	require.NoError(t, err)
	assert.Equal(t, FallbackUsed, out)
	assert.Equal(t, "123", in.Value)
	assert.Equal(t, 3, in.NativePresses)
	assert.Equal(t, 2, in.Clicks, "refocused before native typing")
}

func TestType_FallbackClearsPartialValue(t *testing.T) {
	in := browsertest.NewInput(`#card`)
	in.DOMKeyLimit = 4
	doc := browsertest.NewPage([]*browsertest.Input{in})
	_, kb := browsertest.NewTree(doc)
	els, err := doc.Query(`#card`)
	require.NoError(t, err)

	out, err := NewTyper(time.Microsecond, kb, nil).Type(context.Background(), els[0], testCard, 12)
	require.NoError(t, err)
	assert.Equal(t, FallbackUsed, out)
	assert.Equal(t, testCard, in.Value)
	assert.Equal(t, 1, in.Clears)
	assert.Equal(t, len(testCard), in.NativePresses)
}

func TestType_FallbackSkipsClearWhenNothingLanded(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	in.IgnoreSynthetic = true
	doc := browsertest.NewPage([]*browsertest.Input{in})
	_, kb := browsertest.NewTree(doc)
	els, err := doc.Query(`#cvc`)
	require.NoError(t, err)

	_, err = NewTyper(time.Microsecond, kb, nil).Type(context.Background(), els[0], "123", 3)
	require.NoError(t, err)
	assert.Zero(t, in.Clears)
}

type stuckClearElement struct {
	browser.Element
}

func (stuckClearElement) Clear() error { return nil }

func TestType_FallbackFailsWhenClearDoesNotTake(t *testing.T) {
	in := browsertest.NewInput(`#card`)
	in.DOMKeyLimit = 4
	doc := browsertest.NewPage([]*browsertest.Input{in})
	_, kb := browsertest.NewTree(doc)
	els, err := doc.Query(`#card`)
	require.NoError(t, err)

	out, err := NewTyper(time.Microsecond, kb, nil).Type(context.Background(), stuckClearElement{els[0]}, testCard, 12)
	assert.Equal(t, Failed, out)
	assert.ErrorIs(t, err, ErrFallbackFailed)
	assert.ErrorContains(t, err, "4 chars left")
	assert.Zero(t, in.NativePresses)
}

func TestType_NoFallbackAvailable(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	in.IgnoreSynthetic = true
	out, err := typeInto(t, in, nil, "123", 3)
	assert.Equal(t, Failed, out)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

type failingKeyboard struct{}

func (failingKeyboard) Press(rune) error { return errors.New("no display") }

func TestType_FallbackErrors(t *testing.T) {
	in := browsertest.NewInput(`#cvc`)
	in.IgnoreSynthetic = true
	out, err := typeInto(t, in, failingKeyboard{}, "123", 3)
	assert.Equal(t, Failed, out)
	assert.ErrorIs(t, err, ErrFallbackFailed)
	assert.ErrorContains(t, err, "no display")
}

func TestType_Cancelled(t *testing.T) {
	in := browsertest.NewInput(`#card`)
	doc := browsertest.NewPage([]*browsertest.Input{in})
	els, err := doc.Query(`#card`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := NewTyper(time.Hour, nil, nil).Type(ctx, els[0], testCard, 12)
	assert.Equal(t, Failed, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, in.DOMPresses)
}
