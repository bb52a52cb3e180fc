// Package payform fills third-party payment widgets rendered inside
// iframes: it finds the widget's layout, resolves each input, types the
// values and verifies the widget accepted them.
package payform

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
)

// Filler runs fills with a fixed configuration. It holds no per-fill state
// and may be reused for any number of sessions, one at a time per session.
type Filler struct {
	cfg    Config
	fields map[FieldName]FieldSpec
	native browser.NativeKeyboard
	dump   func(diag.FrameNode)
	log    *zap.Logger

	resolver *FieldResolver
	typer    *Typer
}

// New creates a Filler. cfg zero values take defaults and the field
// contract starts from DefaultFields.
func New(cfg Config, opts ...Option) (*Filler, error) {
	cfg.applyDefaults()
	f := &Filler{
		cfg:    cfg,
		fields: make(map[FieldName]FieldSpec),
		log:    zap.NewNop(),
	}
	for _, s := range DefaultFields() {
		f.fields[s.Name] = s
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	f.log = f.log.Named("payform")
	for _, name := range slices.Sorted(maps.Keys(f.fields)) {
		if err := f.fields[name].Validate(); err != nil {
			return nil, err
		}
	}
	f.resolver = NewFieldResolver(cfg.PollInterval, f.log)
	f.typer = NewTyper(cfg.KeyDelay, f.native, f.log)
	return f, nil
}

// FillPaymentForm fills the widget on top with the default configuration.
// A blank postal code leaves the postal field untouched.
func FillPaymentForm(ctx context.Context, top browser.Document, cardNumber, expiry, cvc, postalCode string, opts ...Option) (FillResult, error) {
	f, err := New(Config{}, opts...)
	if err != nil {
		return FillResult{}, err
	}
	return f.Fill(ctx, NewSession(top), Values{
		CardNumber: cardNumber,
		Expiry:     expiry,
		CVC:        cvc,
		PostalCode: postalCode,
	})
}

type state int

const (
	stateProbeUnified state = iota
	stateProbeSplit
	stateDone
)

// probeResult is what a layout probe found. In split mode only the card
// number frame is known up front; the other frames are located when their
// turn comes.
type probeResult struct {
	mode   Mode
	frames map[FieldName]FrameHandle
}

// Fill detects the layout and fills every field in order. Per-field
// failures are reported in the result, not as an error; the error is
// non-nil only for invalid values or a cancelled context. The session is
// back on the top document when Fill returns.
func (f *Filler) Fill(ctx context.Context, sess *Session, v Values) (FillResult, error) {
	sess.Reset()
	defer sess.Reset()
	res := newResult(uuid.NewString())
	if err := v.Validate(); err != nil {
		return res, err
	}

	log := f.log.With(zap.String("run_id", res.RunID))
	locator := NewFrameLocator(sess, f.cfg.FrameBackoff, log)

	var probe probeResult
	for st := stateProbeUnified; st != stateDone; {
		switch st {
		case stateProbeUnified:
			probe = f.probeUnified(ctx, locator)
			st = stateProbeSplit
			if probe.mode != ModeNotFound {
				st = stateDone
			}
		case stateProbeSplit:
			probe = f.probeSplit(ctx, locator)
			st = stateDone
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	res.Mode = probe.mode
	log.Info("layout detected", zap.Stringer("mode", probe.mode))
	if probe.mode == ModeNotFound {
		if f.dump != nil {
			f.dump(diag.DumpFrameTree(sess.Top(), f.Probes(), f.cfg.MaxDepth))
		}
		return res, nil
	}

	for _, name := range fillOrder {
		if name == PostalCode && !v.hasPostal() {
			continue
		}
		outcome, attempted, err := f.fillField(ctx, sess, locator, probe, name, v.get(name), log)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		if !attempted {
			log.Info("optional field absent", zap.String("field", string(name)))
			continue
		}
		res.record(name, outcome, err)
		fields := []zap.Field{zap.String("field", string(name)), zap.Stringer("outcome", outcome)}
		if err != nil {
			log.Warn("field not filled", append(fields, zap.Error(err))...)
		} else {
			log.Info("field filled", fields...)
		}
	}
	return res, nil
}

func (f *Filler) probeUnified(ctx context.Context, locator *FrameLocator) probeResult {
	h, ok := locator.Locate(ctx, LocateQuery{
		Name:       "unified",
		Exclusions: f.cfg.Exclusions,
		MaxDepth:   f.cfg.MaxDepth,
		Timeout:    f.cfg.UnifiedTimeout,
		Match: func(_ FrameInfo, doc browser.Document) bool {
			for _, name := range requiredFields {
				if !Present(doc, f.fields[name].Selectors) {
					return false
				}
			}
			return true
		},
	})
	if !ok {
		return probeResult{mode: ModeNotFound}
	}
	frames := make(map[FieldName]FrameHandle, len(fillOrder))
	for _, name := range fillOrder {
		frames[name] = h
	}
	return probeResult{mode: ModeUnified, frames: frames}
}

func (f *Filler) probeSplit(ctx context.Context, locator *FrameLocator) probeResult {
	h, ok := locator.Locate(ctx, f.splitQuery(CardNumber, f.cfg.SplitTimeout))
	if !ok {
		return probeResult{mode: ModeNotFound}
	}
	return probeResult{mode: ModeSplit, frames: map[FieldName]FrameHandle{CardNumber: h}}
}

// splitQuery matches the dedicated frame of one field: its title names the
// field and it hosts one of the field's inputs.
func (f *Filler) splitQuery(name FieldName, timeout time.Duration) LocateQuery {
	spec := f.fields[name]
	title := strings.ToLower(spec.SplitFrameTitle)
	return LocateQuery{
		Name:       "split " + string(name),
		Exclusions: f.cfg.Exclusions,
		MaxDepth:   f.cfg.MaxDepth,
		Timeout:    timeout,
		Match: func(info FrameInfo, doc browser.Document) bool {
			if title == "" || !strings.Contains(strings.ToLower(info.Title), title) {
				return false
			}
			return Present(doc, spec.Selectors)
		},
	}
}

// fillField fills one field. attempted is false when an optional field
// turned out to be absent.
func (f *Filler) fillField(ctx context.Context, sess *Session, locator *FrameLocator, probe probeResult, name FieldName, value string, log *zap.Logger) (outcome Outcome, attempted bool, err error) {
	spec := f.fields[name]
	optional := name == PostalCode
	timeout := f.cfg.FieldTimeout
	if optional {
		timeout = f.cfg.PostalTimeout
	}

	h, ok := probe.frames[name]
	if !ok {
		h, ok = locator.Locate(ctx, f.splitQuery(name, timeout))
		if !ok {
			if optional {
				return Failed, false, nil
			}
			return Failed, true, &FillError{Field: name, Operation: "locate frame", Cause: ErrNotFound,
				Details: fmt.Sprintf("no frame titled %q", spec.SplitFrameTitle)}
		}
	}

	doc, err := h.resolve(sess.Top())
	if err != nil {
		if optional {
			return Failed, false, nil
		}
		return Failed, true, &FillError{Field: name, Operation: "enter frame", Cause: err}
	}
	g := sess.Enter(doc)
	defer g.Release()

	el, ok := f.resolver.Resolve(ctx, doc, spec.Selectors, timeout)
	if !ok {
		if optional {
			return Failed, false, nil
		}
		return Failed, true, &FillError{Field: name, Operation: "resolve input", Cause: ErrNotFound,
			Details: fmt.Sprintf("%d selectors tried in %s", len(spec.Selectors), h)}
	}

	outcome, err = f.typer.Type(ctx, el, value, spec.MinAcceptedDelta)
	if err != nil && ctx.Err() == nil {
		err = &FillError{Field: name, Operation: "type", Cause: err}
	}

	// Widgets validate and advance on blur.
	if sleep(ctx, f.cfg.SettleDelay) == nil {
		if perr := el.Press(browser.KeyTab); perr != nil {
			log.Debug("advance focus", zap.String("field", string(name)), zap.Error(perr))
		}
	}
	return outcome, true, err
}

// Probes returns the field selectors in fill order, for frame-tree dumps.
func (f *Filler) Probes() []diag.Probe {
	probes := make([]diag.Probe, 0, len(fillOrder))
	for _, name := range fillOrder {
		probes = append(probes, diag.Probe{Name: string(name), Selectors: f.fields[name].Selectors})
	}
	return probes
}
