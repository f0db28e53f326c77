package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// UpOptions holds the parsed flags for "up".
type UpOptions struct {
	Project          string
	Config           string
	Rules            []string
	Latest           bool
	SkipManifestOnly bool
	Changeset        string
	DryRun           bool
	NoInstall        bool
}

// UpRunFunc is the function signature for the up command handler.
// It is injected by the wiring layer (cmd/relevo/main.go).
type UpRunFunc func(ctx context.Context, opts UpOptions) error

// NewUpCmd creates the "up" subcommand.
func NewUpCmd(runFunc UpRunFunc) *cobra.Command {
	var opts UpOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Update dependency ranges within the configured rules",
		Long:  "Update the project's dependency ranges to the newest matching versions, honoring the rule caps and release-type gates of its configuration.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateUpFlags(opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunc(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Project, "project", ".", "Path to the project directory")
	cmd.Flags().StringVar(&opts.Config, "config", "", "Path to the rules config (default: auto-detect in the project directory)")
	cmd.Flags().StringSliceVar(&opts.Rules, "rules", nil, "Inline rule globs replacing the config file rules; lifts the run cap")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "Target the latest published versions instead of staying within declared ranges")
	cmd.Flags().BoolVar(&opts.SkipManifestOnly, "skip-manifest-only", false, "Skip updates that would not change any installed version")
	cmd.Flags().StringVar(&opts.Changeset, "changeset", "", "Write a changeset JSON document to this path (\"-\" for stdout)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show what would change without modifying the project")
	cmd.Flags().BoolVar(&opts.NoInstall, "no-install", false, "Apply and persist, but skip the install step")

	return cmd
}

func validateUpFlags(opts UpOptions) error {
	info, err := os.Stat(opts.Project)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("project path does not exist: %s", opts.Project)
		}
		return fmt.Errorf("cannot access project path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path is not a directory: %s", opts.Project)
	}

	if opts.Config != "" {
		if _, err := os.Stat(opts.Config); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("config file does not exist: %s", opts.Config)
			}
			return fmt.Errorf("cannot access config file: %w", err)
		}
		if len(opts.Rules) > 0 {
			return fmt.Errorf("--config and --rules are mutually exclusive")
		}
	}

	return nil
}
