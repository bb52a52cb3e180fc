package payform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grez-lucas/payfill/internal/browser/browsertest"
	"github.com/grez-lucas/payfill/internal/diag"
)

func newFiller(t *testing.T, opts ...Option) *Filler {
	t.Helper()
	f, err := New(fastConfig(), append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	return f
}

func TestFill_UnifiedNested(t *testing.T) {
	w := newWidget()
	top, _ := unifiedTree(w)
	top, kb := browsertest.NewTree(top)
	sess := NewSession(top)

	res, err := newFiller(t, WithNativeKeyboard(kb)).Fill(context.Background(), sess, testValues)
	require.NoError(t, err)

	assert.Equal(t, ModeUnified, res.Mode)
	assert.NotEmpty(t, res.RunID)
	for _, name := range fillOrder {
		assert.Equal(t, Succeeded, res.Outcomes[name], name)
	}
	assert.Empty(t, res.Errors)
	assert.True(t, res.OK())

	assert.Equal(t, testCard, w.card.Value)
	assert.Equal(t, testExpiry, w.expiry.Value)
	assert.Equal(t, testCVC, w.cvc.Value)
	assert.Equal(t, testPostal, w.postal.Value)
	for _, in := range w.all() {
		assert.Equal(t, 1, in.Blurs, "every field is blurred after typing")
		assert.Zero(t, in.NativePresses)
	}
	assert.True(t, sess.AtTop())
}

func TestFill_ExcludedFrameNeverTouched(t *testing.T) {
	w := newWidget()
	top, _ := unifiedTree(w)
	top, _ = browsertest.NewTree(top)
	express := top.Children[0]

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)
	require.Equal(t, ModeUnified, res.Mode)

	assert.Zero(t, express.Entered)
	for _, in := range express.Content.Inputs {
		assert.Empty(t, in.Value)
		assert.Zero(t, in.Queries)
	}
}

func TestFill_SplitWithoutPostal(t *testing.T) {
	w := newWidget()
	top, frames := splitTree(w)
	top, _ = browsertest.NewTree(top)
	sess := NewSession(top)

	v := testValues
	v.PostalCode = "   "
	res, err := newFiller(t).Fill(context.Background(), sess, v)
	require.NoError(t, err)

	assert.Equal(t, ModeSplit, res.Mode)
	assert.Equal(t, Succeeded, res.Outcomes[CardNumber])
	assert.Equal(t, Succeeded, res.Outcomes[Expiry])
	assert.Equal(t, Succeeded, res.Outcomes[CVC])
	assert.NotContains(t, res.Outcomes, PostalCode)

	assert.Equal(t, testCard, w.card.Value)
	assert.Equal(t, testExpiry, w.expiry.Value)
	assert.Equal(t, testCVC, w.cvc.Value)

	// No postal lookup at all: the postal input is never queried.
	assert.Zero(t, w.postal.Queries)
	assert.Empty(t, w.postal.Value)
	assert.NotZero(t, frames[CVC].Entered)
	assert.True(t, sess.AtTop())
}

func TestFill_SplitWithPostal(t *testing.T) {
	w := newWidget()
	top, _ := splitTree(w)
	top, _ = browsertest.NewTree(top)

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)

	assert.Equal(t, ModeSplit, res.Mode)
	assert.Equal(t, Succeeded, res.Outcomes[PostalCode])
	assert.Equal(t, testPostal, w.postal.Value)
	assert.True(t, res.OK())
}

func TestFill_PostalAbsentIsNotAnError(t *testing.T) {
	w := newWidget()
	w.postal.Hidden = true
	top, _ := unifiedTree(w)
	top, _ = browsertest.NewTree(top)

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)

	assert.Equal(t, ModeUnified, res.Mode)
	assert.NotContains(t, res.Outcomes, PostalCode)
	assert.NotContains(t, res.Errors, PostalCode)
	assert.Empty(t, w.postal.Value)
	assert.True(t, res.OK())
}

func TestFill_LateWidgetAndInterceptedClick(t *testing.T) {
	w := newWidget()
	w.card.InterceptClick = true
	top, _ := unifiedTree(w)
	top, _ = browsertest.NewTree(top)
	wrapper := top.Children[1]
	wrapper.ShowAfterScans = 3

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)

	assert.Equal(t, ModeUnified, res.Mode)
	assert.Equal(t, Succeeded, res.Outcomes[CardNumber])
	assert.Equal(t, testCard, w.card.Value)
	assert.Equal(t, 1, w.card.Clicks)
	assert.Equal(t, 1, w.card.Focuses, "intercepted click falls back to programmatic focus")
}

func TestFill_SyntheticKeysIgnored(t *testing.T) {
	t.Run("native fallback accepted", func(t *testing.T) {
		w := newWidget()
		w.card.IgnoreSynthetic = true
		top, _ := unifiedTree(w)
		top, kb := browsertest.NewTree(top)

		res, err := newFiller(t, WithNativeKeyboard(kb)).Fill(context.Background(), NewSession(top), testValues)
		require.NoError(t, err)

		assert.Equal(t, FallbackUsed, res.Outcomes[CardNumber])
		assert.True(t, res.FallbackUsed(CardNumber))
		assert.False(t, res.FallbackUsed(Expiry))
		assert.Equal(t, Succeeded, res.Outcomes[Expiry])
		assert.Equal(t, Succeeded, res.Outcomes[CVC])
		assert.Equal(t, testCard, w.card.Value)
		assert.Equal(t, len(testCard), w.card.NativePresses)
		assert.True(t, res.OK())
	})

	t.Run("no native keyboard", func(t *testing.T) {
		w := newWidget()
		w.card.IgnoreSynthetic = true
		top, _ := unifiedTree(w)
		top, _ = browsertest.NewTree(top)

		res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
		require.NoError(t, err)

		assert.Equal(t, Failed, res.Outcomes[CardNumber])
		assert.ErrorIs(t, res.Errors[CardNumber], ErrVerificationFailed)
		var fe *FillError
		require.ErrorAs(t, res.Errors[CardNumber], &fe)
		assert.Equal(t, CardNumber, fe.Field)
		assert.Equal(t, "type", fe.Operation)

		// Remaining fields are still attempted.
		assert.Equal(t, Succeeded, res.Outcomes[Expiry])
		assert.Equal(t, Succeeded, res.Outcomes[CVC])
		assert.False(t, res.OK())
	})

	t.Run("native keyboard ignored too", func(t *testing.T) {
		w := newWidget()
		w.card.IgnoreSynthetic = true
		w.card.IgnoreNative = true
		top, _ := unifiedTree(w)
		top, kb := browsertest.NewTree(top)

		res, err := newFiller(t, WithNativeKeyboard(kb)).Fill(context.Background(), NewSession(top), testValues)
		require.NoError(t, err)

		assert.Equal(t, Failed, res.Outcomes[CardNumber])
		assert.ErrorIs(t, res.Errors[CardNumber], ErrFallbackFailed)
	})
}

func TestFill_FormattedValueAccepted(t *testing.T) {
	w := newWidget()
	w.card.Format = groupDigits
	w.expiry.Format = func(s string) string {
		return strings.ReplaceAll(strings.ReplaceAll(s, " ", ""), "/", " / ")
	}
	top, _ := unifiedTree(w)
	top, _ = browsertest.NewTree(top)

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)

	assert.Equal(t, "4242 4242 4242 4242", w.card.Value)
	assert.Equal(t, "12 / 34", w.expiry.Value)
	assert.True(t, res.OK())
}

func groupDigits(s string) string {
	digits := strings.ReplaceAll(s, " ", "")
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func TestFill_NotFound(t *testing.T) {
	w := newWidget()
	express := browsertest.NewFrame("https://js.stripe.com/v3/express-checkout-inner.html", "Express",
		browsertest.NewPage(w.all()))
	hidden := browsertest.NewFrame("https://js.stripe.com/v3/elements-inner-card.html", "Secure card payment input frame",
		browsertest.NewPage([]*browsertest.Input{input(CardNumber), input(Expiry), input(CVC)}))
	hidden.Hidden = true
	captcha := browsertest.NewFrame("https://newassets.hcaptcha.com/captcha", "Widget containing checkbox", nil)
	top, _ := browsertest.NewTree(browsertest.NewPage(nil, express, hidden, captcha))

	var dumped *diag.FrameNode
	dump := func(root diag.FrameNode) { dumped = &root }
	sess := NewSession(top)
	res, err := newFiller(t, WithFrameDump(dump)).Fill(context.Background(), sess, testValues)
	require.NoError(t, err)

	assert.Equal(t, ModeNotFound, res.Mode)
	assert.Empty(t, res.Outcomes)
	assert.False(t, res.OK())
	assert.True(t, sess.AtTop())
	for _, in := range w.all() {
		assert.Empty(t, in.Value)
	}

	require.NotNil(t, dumped)
	assert.Equal(t, "top", dumped.Path)
	require.Len(t, dumped.Children, 3)
	assert.False(t, dumped.Children[1].Visible)
	assert.Contains(t, dumped.Children[0].Matches, string(CardNumber))
}

func TestFill_MaxDepth(t *testing.T) {
	// Unified frame at depth 4.
	build := func() *browsertest.Page {
		w := newWidget()
		unified := browsertest.NewFrame("https://js.stripe.com/v3/elements-inner-card.html", "card", browsertest.NewPage(w.all()))
		l3 := browsertest.NewFrame("https://a.example/3", "l3", browsertest.NewPage(nil, unified))
		l2 := browsertest.NewFrame("https://a.example/2", "l2", browsertest.NewPage(nil, l3))
		l1 := browsertest.NewFrame("https://a.example/1", "l1", browsertest.NewPage(nil, l2))
		top, _ := browsertest.NewTree(browsertest.NewPage(nil, l1))
		return top
	}

	res, err := newFiller(t).Fill(context.Background(), NewSession(build()), testValues)
	require.NoError(t, err)
	assert.Equal(t, ModeNotFound, res.Mode)

	cfg := fastConfig()
	cfg.MaxDepth = 4
	f, err := New(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	res, err = f.Fill(context.Background(), NewSession(build()), testValues)
	require.NoError(t, err)
	assert.Equal(t, ModeUnified, res.Mode)
}

func TestFill_StaleFramesSkipped(t *testing.T) {
	w := newWidget()
	top, unified := unifiedTree(w)
	top, _ = browsertest.NewTree(top)
	unified.FailEnters = 2
	gone := browsertest.NewFrame("https://shop.example/ad", "ad", nil)
	gone.Detached = true
	top.Children = append([]*browsertest.Frame{gone}, top.Children...)

	res, err := newFiller(t).Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)
	assert.Equal(t, ModeUnified, res.Mode)
	assert.True(t, res.OK())
}

func TestFill_Deterministic(t *testing.T) {
	run := func() FillResult {
		w := newWidget()
		w.cvc.IgnoreSynthetic = true
		top, _ := splitTree(w)
		top, kb := browsertest.NewTree(top)
		res, err := newFiller(t, WithNativeKeyboard(kb)).Fill(context.Background(), NewSession(top), testValues)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.Mode, second.Mode)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.Equal(t, FallbackUsed, first.Outcomes[CVC])
}

func TestFill_ResetsSessionEnteredBeforehand(t *testing.T) {
	w := newWidget()
	top, unified := unifiedTree(w)
	top, _ = browsertest.NewTree(top)
	sess := NewSession(top)
	sess.Enter(unified.Content)

	res, err := newFiller(t).Fill(context.Background(), sess, testValues)
	require.NoError(t, err)
	assert.Equal(t, ModeUnified, res.Mode)
	assert.True(t, sess.AtTop())
}

func TestFill_InvalidValues(t *testing.T) {
	w := newWidget()
	top, unified := unifiedTree(w)
	top, _ = browsertest.NewTree(top)
	sess := NewSession(top)
	sess.Enter(unified.Content)

	_, err := newFiller(t).Fill(context.Background(), sess, Values{CardNumber: testCard, CVC: testCVC})
	assert.ErrorIs(t, err, ErrInvalidValues)
	assert.ErrorContains(t, err, string(Expiry))
	assert.True(t, sess.AtTop(), "session left inside the widget frame")
	assert.Zero(t, w.card.DOMPresses)
}

func TestFill_Cancelled(t *testing.T) {
	top, _ := browsertest.NewTree(browsertest.NewPage(nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := NewSession(top)

	res, err := newFiller(t).Fill(ctx, sess, testValues)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, ModeNotFound, res.Mode)
	assert.True(t, sess.AtTop())
}

func TestFillPaymentForm(t *testing.T) {
	w := newWidget()
	top, _ := unifiedTree(w)
	top, _ = browsertest.NewTree(top)

	res, err := FillPaymentForm(context.Background(), top, testCard, testExpiry, testCVC, "")
	require.NoError(t, err)
	assert.Equal(t, ModeUnified, res.Mode)
	assert.NotContains(t, res.Outcomes, PostalCode)
	assert.Equal(t, testCard, w.card.Value)
}

func TestNew_InvalidFieldSpec(t *testing.T) {
	_, err := New(fastConfig(), WithFields(FieldSpec{Name: CVC, MinAcceptedDelta: 3}))
	assert.ErrorContains(t, err, "no selectors")
}

func TestNew_UnknownFieldName(t *testing.T) {
	_, err := New(fastConfig(), WithFields(FieldSpec{Name: "iban", Selectors: []string{`input[name="iban"]`}, MinAcceptedDelta: 1}))
	assert.ErrorContains(t, err, `unknown field "iban"`)

	_, err = New(fastConfig(), WithFields(FieldSpec{Selectors: []string{`#card`}, MinAcceptedDelta: 12}))
	assert.ErrorContains(t, err, "unknown field")
}

func TestNew_CustomFieldSpec(t *testing.T) {
	card := browsertest.NewInput(`#card`)
	exp, cvc := input(Expiry), input(CVC)
	frame := browsertest.NewFrame("https://pay.example/form", "form", browsertest.NewPage([]*browsertest.Input{card, exp, cvc}))
	top, _ := browsertest.NewTree(browsertest.NewPage(nil, frame))

	f := newFiller(t, WithFields(FieldSpec{Name: CardNumber, Selectors: []string{`#card`}, MinAcceptedDelta: 12}))
	res, err := f.Fill(context.Background(), NewSession(top), testValues)
	require.NoError(t, err)
	assert.Equal(t, ModeUnified, res.Mode)
	assert.Equal(t, testCard, card.Value)
}
