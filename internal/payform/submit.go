package payform

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
)

// WaitRequired waits on the top document for a control the caller cannot
// proceed without. Unlike field lookups, its absence is fatal: the error
// wraps ErrRequiredElementTimeout.
func (f *Filler) WaitRequired(ctx context.Context, sess *Session, name string, selectors []string, timeout time.Duration) (browser.Element, error) {
	sess.Reset()
	el, ok := f.resolver.Resolve(ctx, sess.Top(), selectors, timeout)
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &FillError{
			Operation: "wait " + name,
			Cause:     ErrRequiredElementTimeout,
			Details:   fmt.Sprintf("none of %d selectors usable within %s", len(selectors), timeout),
		}
	}
	return el, nil
}

// Submit clicks the form's submit control. When the click is intercepted
// the control is focused and activated with Enter.
func (f *Filler) Submit(ctx context.Context, sess *Session, selectors []string) error {
	defer sess.Reset()
	el, err := f.WaitRequired(ctx, sess, "submit", selectors, f.cfg.SubmitTimeout)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		f.log.Debug("scroll submit into view", zap.Error(err))
	}
	err = el.Click()
	if err == nil {
		f.log.Info("submitted")
		return nil
	}
	f.log.Debug("submit click failed, pressing enter", zap.Error(err))
	if err := el.Focus(); err != nil {
		return &FillError{Operation: "submit", Cause: err, Details: "focus"}
	}
	if err := el.Press('\r'); err != nil {
		return &FillError{Operation: "submit", Cause: err, Details: "enter key"}
	}
	f.log.Info("submitted with enter key")
	return nil
}
