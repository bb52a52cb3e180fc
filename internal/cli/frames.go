package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/grez-lucas/payfill/internal/browser"
	"github.com/grez-lucas/payfill/internal/diag"
	"github.com/grez-lucas/payfill/internal/payform"
)

func newFramesCmd(a *app) *cobra.Command {
	var (
		t        target
		maxDepth int
	)
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "Print the iframe tree of a page and which fields each frame matches",
		Long: `frames opens the page and prints every iframe down to --max-depth with
its title, src, visibility, the field selectors it matches and a summary
of its inputs. Use it to update selectors after a widget changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.validate(); err != nil {
				return err
			}
			if err := a.load(); err != nil {
				return err
			}
			if maxDepth <= 0 {
				maxDepth = a.cfg.Fill.MaxDepth
			}

			filler, err := payform.New(a.cfg.Fill, append([]payform.Option{payform.WithLogger(a.log)}, a.cfg.FillOptions()...)...)
			if err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), t)
			if err != nil {
				return err
			}
			defer s.close()

			root := diag.DumpFrameTree(browser.NewDocument(s.page), filler.Probes(), maxDepth)
			if a.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(root)
			}
			return diag.Render(cmd.OutOrStdout(), root)
		},
	}
	cmd.Flags().StringVar(&t.url, "url", "", "page URL")
	cmd.Flags().StringVar(&t.replay, "replay", "", "HAR recording to serve instead of the network")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "iframe nesting to descend (default from config)")
	return cmd
}
