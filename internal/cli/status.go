package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(g *globalOptions) *cobra.Command {
	var (
		index  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the document, unit counts and disk usage of a saved index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(false)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			sess, err := e.openSession(cmd.Context(), false, false)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.Load(cmd.Context(), e.indexDir(index)); err != nil {
				return fmt.Errorf("load index: %w", err)
			}
			return WriteStatus(cmd.OutOrStdout(), sess.Status(cmd.Context()), formatFor(asJSON))
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "index directory (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zukan version %s\n", version)
		},
	}
}
