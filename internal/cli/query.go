package cli

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

type queryOptions struct {
	index     string
	question  string
	imagePath string
	k         int
	asJSON    bool
}

func (o *queryOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.index, "index", "", "index directory (default from config)")
	cmd.Flags().StringVarP(&o.question, "query", "q", "", "question or search text")
	cmd.Flags().StringVar(&o.imagePath, "image", "", "query image file (png, jpeg, gif, bmp, tiff, webp)")
	cmd.Flags().IntVarP(&o.k, "top-k", "k", 0, "number of units to retrieve (default from config)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "output as JSON")
}

// queryImage decodes the --image file, or returns nil when none was given.
func (o *queryOptions) queryImage() (image.Image, error) {
	if o.imagePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(o.imagePath)
	if err != nil {
		return nil, fmt.Errorf("read query image: %w", err)
	}
	return utils.DecodeImage(data)
}

func newAskCommand(g *globalOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer a question about an indexed PDF",
		Long: `Retrieve the text and images closest to a question (or to an image) and ask the
configured vision model to answer from them.

Examples:
  zukan ask -q "How did revenue change?"
  zukan ask --image chart.png
  zukan ask --image chart.png -q "Which quarter is highest?" -k 8 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, g, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func runAsk(cmd *cobra.Command, g *globalOptions, opts *queryOptions) error {
	img, err := opts.queryImage()
	if err != nil {
		return err
	}
	if img == nil && strings.TrimSpace(opts.question) == "" {
		return errors.New("either --query or --image is required")
	}
	e, err := g.setup(false)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	ctx := cmd.Context()

	sess, err := e.openSession(ctx, true, true)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.Load(ctx, e.indexDir(opts.index)); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	var answer *models.Answer
	if img != nil {
		answer, err = sess.AskImage(ctx, img, opts.question, opts.k)
	} else {
		answer, err = sess.Ask(ctx, opts.question, opts.k)
	}
	if err != nil {
		return err
	}
	return WriteAnswer(cmd.OutOrStdout(), answer, formatFor(opts.asJSON))
}

func newSearchCommand(g *globalOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "search [text...]",
		Short: "Retrieve the units closest to a text or image query without generating an answer",
		Long: `Search an index by text or by image. The query text is --query or all positional
arguments joined by spaces, so multi-word queries work with or without quotes.

Examples:
  zukan search revenue by region
  zukan search --image chart.png -k 3 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.question == "" {
				opts.question = buildQuery(args)
			}
			return runSearch(cmd, g, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

// buildQuery joins positional args with spaces so multi-word queries work the same with or
// without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(cmd *cobra.Command, g *globalOptions, opts *queryOptions) error {
	img, err := opts.queryImage()
	if err != nil {
		return err
	}
	query := models.Query{Kind: models.KindText, Text: opts.question, K: opts.k}
	if img != nil {
		query = models.Query{Kind: models.KindImage, Image: img, Question: opts.question, K: opts.k}
	} else if strings.TrimSpace(opts.question) == "" {
		return errors.New("a query text or --image is required")
	}

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
	if err := sess.Load(ctx, e.indexDir(opts.index)); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	hits, err := sess.Search(ctx, query)
	if err != nil {
		return err
	}
	label := opts.question
	if img != nil && label == "" {
		label = opts.imagePath
	}
	return WriteHits(cmd.OutOrStdout(), label, hits, formatFor(opts.asJSON))
}
