package commands

import (
	"github.com/spf13/cobra"
)

// RewriteOptions holds options for the rewrite command.
type RewriteOptions struct {
	Limit     int64
	Statement bool
	Input     string
}

// NewRewriteCommand creates the rewrite command.
func NewRewriteCommand() *cobra.Command {
	opts := &RewriteOptions{}

	cmd := &cobra.Command{
		Use:   "rewrite <project> [SQL]",
		Short: "Show the rewritten SQL without submitting it",
		Long: `Rewrite a statement for a project and print the result along with the
tables it resolved to. Nothing is sent to the engine.`,
		Example: `  leapquery rewrite acme "SELECT * FROM continuous.pageviews" --limit 100
  leapquery rewrite acme "DROP TABLE materialized.daily" --statement`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, argAt(args, 1), opts.Input)
			if err != nil {
				return err
			}
			cctx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			exec, err := cctx.Executor()
			if err != nil {
				return err
			}

			var limit *int64
			if cmd.Flags().Changed("limit") {
				limit = &opts.Limit
			}
			res, err := exec.Rewrite(args[0], sql, limit, opts.Statement)
			if err != nil {
				return err
			}
			return renderRewrite(cctx.Out, res, cctx.Format())
		},
	}

	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "Maximum number of rows the query may return")
	cmd.Flags().BoolVar(&opts.Statement, "statement", false, "Rewrite in statement mode (any statement kind)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file (- for stdin)")

	return cmd
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "tables <project> [SQL]",
		Short: "List the tables a statement references and where they resolve",
		Long: `Parse a statement and show, for every table it references, the
physical table it resolves to for the project. References that cannot be
resolved are listed with the reason instead of failing the command.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, argAt(args, 1), input)
			if err != nil {
				return err
			}
			cctx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			exec, err := cctx.Executor()
			if err != nil {
				return err
			}
			mappings, err := exec.Explain(args[0], sql)
			if err != nil {
				return err
			}
			return renderMappings(cctx.Out, mappings, cctx.Format())
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Read SQL from file (- for stdin)")

	return cmd
}
