// Package cli implements the payfill command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grez-lucas/payfill/internal/config"
	"github.com/grez-lucas/payfill/internal/logging"
)

// Version is set at build time:
//
//	go build -ldflags "-X github.com/grez-lucas/payfill/internal/cli.Version=1.2.0" ./cmd/payfill
var Version = "dev"

// app holds what the persistent flags resolve to. Config is loaded lazily
// so that version and help work without a valid config file.
type app struct {
	configPath string
	envFiles   []string
	logLevel   string
	jsonOut    bool

	cfg *config.Config
	log *zap.Logger
}

func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logger.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Logger)
	return nil
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "payfill",
		Short: "Fill embedded card-payment widgets across nested iframes",
		Long: `payfill drives a Chrome page holding a hosted card-payment widget and
types card number, expiry, CVC and postal code into it, whether the
widget renders one unified frame or one frame per field.

  payfill fill --url https://shop.example/checkout --card 4242424242424242 --expiry 12/34 --cvc 123
  payfill fill --replay checkout.har.json --card ... --capture-dir ./captures
  payfill frames --url https://shop.example/checkout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML config file (defaults are embedded)")
	pf.StringSliceVar(&a.envFiles, "env-file", nil, "env files to load (default ./.env when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "override logger level: debug, info, warn, error")
	pf.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(newFillCmd(a), newFramesCmd(a), newVersionCmd(a))
	return root
}

// Execute runs the command tree with ctx, which is cancelled on interrupt
// by the caller.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
