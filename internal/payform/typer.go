package payform

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grez-lucas/payfill/internal/browser"
)

// Typer enters text into an input one key at a time and verifies the input
// accepted it. Widgets that drop synthetic key events are retried through
// the native keyboard when one is configured.
type Typer struct {
	keyDelay time.Duration
	native   browser.NativeKeyboard
	log      *zap.Logger
}

// NewTyper creates a typer pacing keys keyDelay apart. native may be nil.
func NewTyper(keyDelay time.Duration, native browser.NativeKeyboard, log *zap.Logger) *Typer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Typer{keyDelay: keyDelay, native: native, log: log.Named("typer")}
}

// Type enters text into el. The returned error is nil for Succeeded and
// FallbackUsed and wraps ErrVerificationFailed or ErrFallbackFailed for
// Failed. Context cancellation is returned as is.
func (t *Typer) Type(ctx context.Context, el browser.Element, text string, minDelta int) (Outcome, error) {
	want := utf8.RuneCountInString(text)
	before, err := valueLen(el)
	if err != nil {
		return Failed, fmt.Errorf("read value: %w", err)
	}

	if err := el.ScrollIntoView(); err != nil {
		t.log.Debug("scroll into view", zap.Error(err))
	}
	t.focus(el)
	if err := t.typeKeys(ctx, text, el.Press); err != nil {
		if ctx.Err() != nil {
			return Failed, ctx.Err()
		}
		t.log.Debug("dom typing interrupted", zap.Error(err))
	}

	after, err := valueLen(el)
	if err != nil {
		return Failed, fmt.Errorf("read value: %w", err)
	}
	if accepted(before, after, want, minDelta) {
		return Succeeded, nil
	}

	t.log.Info("typed value not accepted",
		zap.Int("want_len", want),
		zap.Int("before_len", before),
		zap.Int("after_len", after))
	if t.native == nil {
		return Failed, fmt.Errorf("%w: length went from %d to %d, need +%d",
			ErrVerificationFailed, before, after, minDelta)
	}

	if after != before {
		// Keys that did land would be doubled by the replay.
		if err := el.Clear(); err != nil {
			return Failed, fmt.Errorf("%w: clear partial value: %v", ErrFallbackFailed, err)
		}
		left, err := valueLen(el)
		if err != nil {
			return Failed, fmt.Errorf("read value: %w", err)
		}
		if left != 0 {
			return Failed, fmt.Errorf("%w: %d chars left after clearing partial value",
				ErrFallbackFailed, left)
		}
		before = 0
	}

	t.focus(el)
	if err := t.typeKeys(ctx, text, t.native.Press); err != nil {
		if ctx.Err() != nil {
			return Failed, ctx.Err()
		}
		return Failed, fmt.Errorf("%w: %v", ErrFallbackFailed, err)
	}
	final, err := valueLen(el)
	if err != nil {
		return Failed, fmt.Errorf("read value: %w", err)
	}
	if accepted(before, final, want, minDelta) {
		t.log.Info("native keyboard fallback accepted", zap.Int("final_len", final))
		return FallbackUsed, nil
	}
	return Failed, fmt.Errorf("%w: length went from %d to %d, need +%d",
		ErrFallbackFailed, before, final, minDelta)
}

// focus clicks el, focusing it programmatically when the click does not
// land.
func (t *Typer) focus(el browser.Element) {
	err := el.Click()
	if err == nil {
		return
	}
	if errors.Is(err, browser.ErrClickIntercepted) {
		t.log.Debug("click intercepted, focusing programmatically")
	} else {
		t.log.Debug("click failed, focusing programmatically", zap.Error(err))
	}
	if err := el.Focus(); err != nil {
		t.log.Debug("focus", zap.Error(err))
	}
}

func (t *Typer) typeKeys(ctx context.Context, text string, press func(rune) error) error {
	lim := rate.NewLimiter(rate.Every(t.keyDelay), 1)
	for _, r := range text {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
		if err := press(r); err != nil {
			return err
		}
	}
	return nil
}

// accepted is the verification heuristic. Widgets reformat what they
// receive (spaces in card numbers, " / " in expiry dates), so it compares
// lengths rather than values: the value must grow by minDelta, or end up at
// least half as long as the text typed.
func accepted(before, after, want, minDelta int) bool {
	if after-before >= minDelta {
		return true
	}
	return want > 0 && 2*after >= want
}

func valueLen(el browser.Element) (int, error) {
	v, err := el.Value()
	if err != nil {
		return 0, err
	}
	return utf8.RuneCountInString(v), nil
}
