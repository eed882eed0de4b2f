// Package cli implements the bjjscore command line: the HTTP service and
// offline tools that print schedules and scenes or run an export for a
// project file.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/okian/bjjscore/internal/config"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatJSON, FormatYAML}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool
}

// LoadConfig loads the configuration named by --config, falling back to
// BJJSCORE_CONFIG.
func (o *RootOptions) LoadConfig(ctx context.Context) (*config.Config, error) {
	path := o.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	return config.LoadFile(ctx, path)
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bjjscore",
		Short: "BJJ match scoring and scoreboard overlay export",
		Long: `bjjscore records scoring events against a match video and burns an
animated scoreboard overlay into an exported copy of the video.`,
		SilenceUsage:  true,
		SilenceErrors: true, // Execute prints the error once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file (default $"+config.EnvConfig+")")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatJSON, "output format (json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output on stderr")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewSceneCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
