package payform

import (
	"time"

	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
)

// Config holds the timing and traversal settings of a Filler. Zero fields
// take their defaults.
type Config struct {
	MaxDepth int `yaml:"max_depth"`

	UnifiedTimeout time.Duration `yaml:"unified_timeout"`
	SplitTimeout   time.Duration `yaml:"split_timeout"`
	FieldTimeout   time.Duration `yaml:"field_timeout"`
	PostalTimeout  time.Duration `yaml:"postal_timeout"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout"`

	FrameBackoff time.Duration `yaml:"frame_backoff"`
	PollInterval time.Duration `yaml:"poll_interval"`
	KeyDelay     time.Duration `yaml:"key_delay"`
	SettleDelay  time.Duration `yaml:"settle_delay"`

	// Exclusions name frames that are never the card form: express
	// checkout buttons, the widget's controller frame, CAPTCHAs.
	Exclusions []string `yaml:"exclusions"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		MaxDepth:       3,
		UnifiedTimeout: 10 * time.Second,
		SplitTimeout:   10 * time.Second,
		FieldTimeout:   5 * time.Second,
		PostalTimeout:  2 * time.Second,
		SubmitTimeout:  10 * time.Second,
		FrameBackoff:   150 * time.Millisecond,
		PollInterval:   100 * time.Millisecond,
		KeyDelay:       35 * time.Millisecond,
		SettleDelay:    250 * time.Millisecond,
		Exclusions:     []string{"express-checkout", "controller", "hcaptcha"},
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxDepth <= 0 {
		c.MaxDepth = d.MaxDepth
	}
	setDuration(&c.UnifiedTimeout, d.UnifiedTimeout)
	setDuration(&c.SplitTimeout, d.SplitTimeout)
	setDuration(&c.FieldTimeout, d.FieldTimeout)
	setDuration(&c.PostalTimeout, d.PostalTimeout)
	setDuration(&c.SubmitTimeout, d.SubmitTimeout)
	setDuration(&c.FrameBackoff, d.FrameBackoff)
	setDuration(&c.PollInterval, d.PollInterval)
	setDuration(&c.KeyDelay, d.KeyDelay)
	setDuration(&c.SettleDelay, d.SettleDelay)
	if c.Exclusions == nil {
		c.Exclusions = d.Exclusions
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}

// Option configures a Filler.
type Option func(*Filler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(f *Filler) { f.log = log }
}

// WithNativeKeyboard enables the typing fallback for widgets that ignore
// synthetic key events.
func WithNativeKeyboard(kb browser.NativeKeyboard) Option {
	return func(f *Filler) { f.native = kb }
}

// WithFields replaces the field contract. Fields not listed keep their
// defaults; New rejects a spec whose name is not a known field.
func WithFields(specs ...FieldSpec) Option {
	return func(f *Filler) {
		for _, s := range specs {
			f.fields[s.Name] = s
		}
	}
}

// WithFrameDump registers a hook called with the frame tree when no layout
// matched, for diagnosing selector drift.
func WithFrameDump(fn func(diag.FrameNode)) Option {
	return func(f *Filler) { f.dump = fn }
}
