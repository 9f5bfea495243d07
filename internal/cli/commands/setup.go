package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/pkg/executor"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Loaded
	Logger *slog.Logger
	Out    io.Writer
}

// NewCommandContext collects the config and logger stored on the command by
// the root command. Commands run standalone (as in tests) load defaults.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		var err error
		cfg, err = config.Load("", nil)
		if err != nil {
			return nil, err
		}
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
		Out:    cmd.OutOrStdout(),
	}, nil
}

// Executor builds an executor from the loaded configuration.
func (c *CommandContext) Executor() (*executor.Executor, error) {
	ec, err := c.Cfg.ExecutorConfig(nil, c.Logger)
	if err != nil {
		return nil, err
	}
	return executor.New(ec)
}

// Format returns the configured output format.
func (c *CommandContext) Format() string {
	return c.Cfg.Format
}

// readSQL returns the statement from the positional argument or from the
// --input file, "-" meaning stdin.
func readSQL(cmd *cobra.Command, arg, input string) (string, error) {
	if input == "" {
		if strings.TrimSpace(arg) == "" {
			return "", fmt.Errorf("no SQL given\nHint: pass the statement as an argument or use --input")
		}
		return arg, nil
	}
	if arg != "" {
		return "", fmt.Errorf("SQL given both as an argument and with --input")
	}

	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read SQL from %s: %w", input, err)
	}
	return string(data), nil
}
