package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo describes the running binary. Fields default to "unknown" when
// the build did not stamp them.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

func (b BuildInfo) orUnknown() BuildInfo {
	for _, f := range []*string{&b.Version, &b.GitCommit, &b.BuildDate} {
		if *f == "" {
			*f = "unknown"
		}
	}
	return b
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the leapquery version, the commit and date it was built from, and the Go toolchain and platform.`,
		Run: func(cmd *cobra.Command, _ []string) {
			info := info.orUnknown()
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "leapquery v%s\n", info.Version)
			_, _ = fmt.Fprintf(out, "  commit:   %s\n", info.GitCommit)
			_, _ = fmt.Fprintf(out, "  built:    %s\n", info.BuildDate)
			_, _ = fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
			_, _ = fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
