package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
	"github.com/grez-lucas/payfill/internal/payform"
)

type fillFlags struct {
	target
	values     payform.Values
	keyboard   string
	captureDir string
	submit     bool
}

func newFillCmd(a *app) *cobra.Command {
	var f fillFlags
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill the card widget on a checkout page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.target.validate(); err != nil {
				return err
			}
			if err := f.values.Validate(); err != nil {
				return err
			}
			if err := a.load(); err != nil {
				return err
			}
			return runFill(cmd, a, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.url, "url", "", "checkout page URL")
	fl.StringVar(&f.replay, "replay", "", "HAR recording to serve instead of the network")
	fl.StringVar(&f.values.CardNumber, "card", "", "card number")
	fl.StringVar(&f.values.Expiry, "expiry", "", "expiry, e.g. 12/34")
	fl.StringVar(&f.values.CVC, "cvc", "", "card security code")
	fl.StringVar(&f.values.PostalCode, "postal", "", "postal code (skipped when blank)")
	fl.StringVar(&f.keyboard, "keyboard", "", "native keyboard fallback: none, cdp (re-focus and resend the same key events), insert-text, xdotool (default from config)")
	fl.StringVar(&f.captureDir, "capture-dir", "", "write screenshot, DOM and frame tree here when the fill fails")
	fl.BoolVar(&f.submit, "submit", false, "click the submit control after a successful fill")
	return cmd
}

func runFill(cmd *cobra.Command, a *app, f fillFlags) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if f.keyboard != "" {
		cfg.Keyboard = f.keyboard
	}
	if f.captureDir != "" {
		cfg.CaptureDir = f.captureDir
	}

	s, err := a.open(ctx, f.target)
	if err != nil {
		return err
	}
	defer s.close()

	kb, err := browser.NewKeyboard(cfg.Keyboard, s.page, cfg.Browser.Display)
	if err != nil {
		return err
	}
	opts := append([]payform.Option{
		payform.WithLogger(a.log),
		payform.WithNativeKeyboard(kb),
		payform.WithFrameDump(func(root diag.FrameNode) {
			if err := diag.Render(cmd.ErrOrStderr(), root); err != nil {
				a.log.Warn("render frame tree", zap.Error(err))
			}
		}),
	}, cfg.FillOptions()...)

	filler, err := payform.New(cfg.Fill, opts...)
	if err != nil {
		return err
	}
	sess := payform.NewSession(browser.NewDocument(s.page))
	res, err := filler.Fill(ctx, sess, f.values)
	if err != nil {
		return err
	}

	rep := newReport(res)
	if !res.OK() && cfg.CaptureDir != "" {
		art, cerr := diag.Capture(s.page, cfg.CaptureDir, "fill-"+res.RunID, filler.Probes(), cfg.Fill.MaxDepth, a.log)
		if cerr != nil {
			a.log.Warn("capture failed", zap.Error(cerr))
		}
		rep.Artifacts = art
	}
	if f.submit && res.OK() {
		if err := filler.Submit(ctx, sess, cfg.SubmitSelectors); err != nil {
			rep.SubmitError = err.Error()
		} else {
			rep.Submitted = true
		}
	}

	if err := writeReport(cmd.OutOrStdout(), rep, a.jsonOut); err != nil {
		return err
	}
	switch {
	case !res.OK():
		return fmt.Errorf("fill %s: %s", res.RunID, rep.summary())
	case rep.SubmitError != "":
		return fmt.Errorf("fill %s: submit: %s", res.RunID, rep.SubmitError)
	}
	return nil
}

// report is the printable form of a fill. It never holds card data.
type report struct {
	RunID       string            `json:"run_id"`
	Mode        string            `json:"mode"`
	Fields      map[string]string `json:"fields"`
	Errors      map[string]string `json:"errors,omitempty"`
	Submitted   bool              `json:"submitted,omitempty"`
	SubmitError string            `json:"submit_error,omitempty"`
	Artifacts   *diag.Artifacts   `json:"artifacts,omitempty"`
}

func newReport(res payform.FillResult) report {
	rep := report{
		RunID:  res.RunID,
		Mode:   res.Mode.String(),
		Fields: make(map[string]string, len(res.Outcomes)),
	}
	for name, o := range res.Outcomes {
		rep.Fields[string(name)] = o.String()
	}
	for name, err := range res.Errors {
		if rep.Errors == nil {
			rep.Errors = make(map[string]string, len(res.Errors))
		}
		rep.Errors[string(name)] = err.Error()
	}
	return rep
}

func (r report) summary() string {
	if r.Mode == payform.ModeNotFound.String() {
		return "no payment widget found"
	}
	var failed []string
	for _, name := range sortedKeys(r.Fields) {
		if r.Fields[name] == payform.Failed.String() {
			failed = append(failed, name)
		}
	}
	return "failed fields: " + strings.Join(failed, ", ")
}

func writeReport(w io.Writer, r report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "run %s: mode=%s\n", r.RunID, r.Mode)
	for _, name := range sortedKeys(r.Fields) {
		fmt.Fprintf(w, "  %-12s %s", name, r.Fields[name])
		if msg, ok := r.Errors[name]; ok {
			fmt.Fprintf(w, " (%s)", msg)
		}
		fmt.Fprintln(w)
	}
	if r.Submitted {
		fmt.Fprintln(w, "  submitted")
	}
	if r.Artifacts != nil {
		for _, p := range []string{r.Artifacts.Screenshot, r.Artifacts.DOM, r.Artifacts.Frames} {
			if p != "" {
				fmt.Fprintf(w, "  captured %s\n", p)
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
