package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start an HTTP API exposing query, statement and rewrite endpoints per
project, plus /healthz and Prometheus /metrics. The server runs until
interrupted and then shuts down gracefully.`,
		Example: `  leapquery serve --addr :8765
  leapquery serve --allow-raw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cctx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			exec, err := cctx.Executor()
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Executor:          exec,
				Addr:              cctx.Cfg.Server.Addr,
				AllowRaw:          cctx.Cfg.Server.AllowRaw,
				ReadHeaderTimeout: cctx.Cfg.Server.ReadHeaderTimeout,
				ShutdownTimeout:   cctx.Cfg.Server.ShutdownTimeout,
				Logger:            cctx.Logger,
			})
			return srv.Serve(cmd.Context())
		},
	}

	// Read through the config loader, which maps them to server.addr and server.allow_raw.
	cmd.Flags().String("addr", "", "Listen address (default :8765)")
	cmd.Flags().Bool("allow-raw", false, "Enable the unscoped /v1/raw endpoint")

	return cmd
}
