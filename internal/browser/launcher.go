package browser

import (
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// LaunchConfig controls how Chrome is started or reached.
type LaunchConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local one.
	RemoteURL string `yaml:"remote_url"`
	// Bin overrides the Chrome binary; empty lets Rod find or fetch one.
	Bin      string `yaml:"bin"`
	Headless bool   `yaml:"headless"`
	// Display is the X display for headful mode, e.g. ":99".
	Display string `yaml:"display"`
	Stealth bool   `yaml:"stealth"`
}

// Instance is a connected browser plus the launcher that owns its process.
type Instance struct {
	Browser *rod.Browser
	cfg     LaunchConfig
	lnch    *launcher.Launcher
	log     *zap.Logger
}

// Launch starts (or connects to) Chrome.
func Launch(cfg LaunchConfig, log *zap.Logger) (*Instance, error) {
	if log == nil {
		log = zap.NewNop()
	}
	inst := &Instance{cfg: cfg, log: log}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(cfg.Headless).
			Set("disable-blink-features", "AutomationControlled").
			Set("no-first-run").
			Set("no-default-browser-check").
			Set("window-size", "1920,1080")
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		if !cfg.Headless && cfg.Display != "" {
			l = l.Env(append(os.Environ(), "DISPLAY="+cfg.Display)...)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		inst.lnch = l
		log.Info("browser: launched local chrome", zap.Bool("headless", cfg.Headless))
	} else {
		log.Info("browser: connecting to remote", zap.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		inst.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	inst.Browser = b
	return inst, nil
}

// NewPage opens a tab, with stealth evasions when configured.
func (i *Instance) NewPage() (*rod.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if i.cfg.Stealth {
		page, err = stealth.Page(i.Browser)
	} else {
		page, err = i.Browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	return page, nil
}

// Close disconnects and, for a local launch, kills Chrome.
func (i *Instance) Close() error {
	var err error
	if i.Browser != nil {
		err = i.Browser.Close()
		i.Browser = nil
	}
	i.cleanup()
	return err
}

func (i *Instance) cleanup() {
	if i.lnch != nil {
		i.lnch.Cleanup()
		i.lnch = nil
	}
}
