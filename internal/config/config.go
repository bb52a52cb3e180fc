// Package config loads payfill configuration: embedded defaults, an
// optional YAML file, .env files and PAYFILL_* environment variables, in
// increasing order of precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/logging"
	"github.com/grez-lucas/payfill/internal/payform"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the top-level payfill configuration.
type Config struct {
	ContractVersion string               `yaml:"contract_version"`
	Browser         browser.LaunchConfig `yaml:"browser"`
	Logger          logging.Config       `yaml:"logger"`

	// Keyboard names the native keyboard used when a widget drops
	// synthetic key events: none, cdp, insert-text or xdotool. cdp only
	// retries the same key events after re-focusing.
	Keyboard   string `yaml:"keyboard"`
	CaptureDir string `yaml:"capture_dir"`

	Fill            payform.Config      `yaml:"fill"`
	SubmitSelectors []string            `yaml:"submit_selectors"`
	Fields          []payform.FieldSpec `yaml:"fields"`
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: embedded defaults: %w", err)
	}
	return &cfg, nil
}

// Load builds the configuration. path may be empty. envFiles are loaded
// with godotenv without overriding variables already set; when none are
// given, ./.env is loaded if it exists.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("config: env files: %w", err)
	}
	return nil
}

// applyEnv overrides file values with PAYFILL_* variables.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"PAYFILL_REMOTE_URL":  &c.Browser.RemoteURL,
		"PAYFILL_CHROME_BIN":  &c.Browser.Bin,
		"PAYFILL_DISPLAY":     &c.Browser.Display,
		"PAYFILL_LOG_LEVEL":   &c.Logger.Level,
		"PAYFILL_LOG_FORMAT":  &c.Logger.Format,
		"PAYFILL_LOG_FILE":    &c.Logger.LogFile,
		"PAYFILL_KEYBOARD":    &c.Keyboard,
		"PAYFILL_CAPTURE_DIR": &c.CaptureDir,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	flags := map[string]*bool{
		"PAYFILL_HEADLESS": &c.Browser.Headless,
		"PAYFILL_STEALTH":  &c.Browser.Stealth,
	}
	for key, dst := range flags {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Keyboard == "" {
		c.Keyboard = browser.KeyboardNone
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.ContractVersion == "" {
		c.ContractVersion = payform.ContractVersion
	}
}

// Validate checks the field contract and enumerated settings.
func (c *Config) Validate() error {
	switch c.Keyboard {
	case browser.KeyboardNone, browser.KeyboardCDP, browser.KeyboardInsertText, browser.KeyboardXdotool:
	default:
		return fmt.Errorf("config: unknown keyboard %q", c.Keyboard)
	}

	seen := make(map[payform.FieldName]bool, len(c.Fields))
	for _, f := range c.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if seen[f.Name] {
			return fmt.Errorf("config: field %s declared twice", f.Name)
		}
		seen[f.Name] = true
	}
	for i, sel := range c.SubmitSelectors {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("config: submit selector %d is blank", i)
		}
	}
	return nil
}

// FillOptions returns the payform options carrying the field contract.
func (c *Config) FillOptions() []payform.Option {
	if len(c.Fields) == 0 {
		return nil
	}
	return []payform.Option{payform.WithFields(c.Fields...)}
}
