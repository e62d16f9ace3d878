package cli

import (
	"math"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	out    string
	asJSON bool
	quiet  bool
}

func newIngestCommand(g *globalOptions) *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <pdf>",
		Short: "Index the text and images of a PDF and save the index",
		Long: `Extract the text and embedded images of every page, embed them into one space,
build the index and save it (vectors, units and images) to a directory.

Examples:
  zukan ingest report.pdf
  zukan ingest report.pdf --out ./report-index --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, g, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "index directory (default from config)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "hide the progress bar")
	return cmd
}

func runIngest(cmd *cobra.Command, g *globalOptions, opts *ingestOptions, path string) error {
	e, err := g.setup(false)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	ctx := cmd.Context()

	sess, err := e.openSession(ctx, false, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	var progress func(float64)
	if !opts.quiet {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				_, _ = cmd.ErrOrStderr().Write([]byte("\n"))
			}),
		)
		progress = func(f float64) {
			_ = bar.Set(int(math.Round(f * 100)))
		}
	}

	report, err := sess.IngestFile(ctx, path, progress)
	if err != nil {
		return err
	}
	dir := e.indexDir(opts.out)
	if err := sess.Save(ctx, dir); err != nil {
		return err
	}
	return WriteIngestReport(cmd.OutOrStdout(), report, dir, formatFor(opts.asJSON))
}
