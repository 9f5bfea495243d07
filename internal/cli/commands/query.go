package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/executor"
)

// QueryOptions holds options shared by the submitting commands.
type QueryOptions struct {
	Limit int64
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <project> [SQL]",
		Short: "Rewrite a SELECT for a project and submit it",
		Long: `Rewrite a SELECT query so that its tables point at the project's
physical tables, then submit it to the engine.

With --limit the query is rejected when it asks for more rows, and the
result is capped at that many rows. The command returns as soon as the
engine has accepted the query and prints its id and state.`,
		Example: `  # Submit a capped query
  leapquery query acme "SELECT * FROM events" --limit 1000

  # Read the query from a file
  leapquery query acme --input report.sql`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, argAt(args, 1), opts.Input)
			if err != nil {
				return err
			}
			return submit(cmd, func(exec *executor.Executor) (core.Execution, error) {
				if cmd.Flags().Changed("limit") {
					return exec.ExecuteQueryWithLimit(cmd.Context(), args[0], sql, opts.Limit)
				}
				return exec.ExecuteQuery(cmd.Context(), args[0], sql)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "Maximum number of rows the query may return")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file (- for stdin)")

	return cmd
}

// NewStatementCommand creates the statement command.
func NewStatementCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "statement <project> [SQL]",
		Short: "Rewrite any statement for a project and submit it",
		Long: `Rewrite a single statement of any kind (DDL, DML or a query) so that
its tables point at the project's physical tables, then submit it.
No row cap applies.`,
		Example: `  leapquery statement acme "CREATE TABLE materialized.daily AS SELECT * FROM events"`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, argAt(args, 1), opts.Input)
			if err != nil {
				return err
			}
			return submit(cmd, func(exec *executor.Executor) (core.Execution, error) {
				return exec.ExecuteStatement(cmd.Context(), args[0], sql)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file (- for stdin)")

	return cmd
}

// NewRawCommand creates the raw command.
func NewRawCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "raw [SQL]",
		Short: "Submit SQL verbatim, without project scoping",
		Long: `Submit SQL to the engine exactly as written. No table rewriting or
row cap is applied, so the statement can reach any catalog the engine
user can see.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sql, err := readSQL(cmd, argAt(args, 0), opts.Input)
			if err != nil {
				return err
			}
			return submit(cmd, func(exec *executor.Executor) (core.Execution, error) {
				return exec.ExecuteRawQuery(cmd.Context(), sql)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file (- for stdin)")

	return cmd
}

// submit runs fn against a fresh executor and renders the execution.
func submit(cmd *cobra.Command, fn func(*executor.Executor) (core.Execution, error)) error {
	cctx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	exec, err := cctx.Executor()
	if err != nil {
		return err
	}
	res, err := fn(exec)
	if err != nil {
		return err
	}
	return renderExecution(cctx.Out, res, cctx.Format())
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
