// Package cli implements the scrapbook command-line interface.
//
// # Commands
//
//   - serve: run the REST API (and scheduled backups when enabled)
//   - mcp: serve the Model Context Protocol on stdin/stdout
//   - backup: take one snapshot now
//   - assets: manage custom stickers, photos and fonts
//   - remote: edit albums on a running server through the editor engine
//   - config init: write a starter config file
//
// All commands accept --config and --verbose (-v). Loggers travel through
// the command context.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"scrapbook/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version. main
// passes values injected with -ldflags.
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// rootOptions is filled in by the root command before any subcommand runs.
type rootOptions struct {
	configPath string
	verbose    bool

	cfg *config.Config
}

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "scrapbook",
		Short:         "Scrapbook serves albums of free-form pages",
		Long:          `Scrapbook stores albums of pages decorated with photos, text and stickers, serves them over a REST API, and exposes them to AI agents over MCP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			var path string
			var exists bool
			if needsConfig(cmd) {
				cfg, resolved, found, err := config.Load(opts.configPath)
				if err != nil {
					return err
				}
				opts.cfg, path, exists = cfg, resolved, found
				if parsed, err := charmlog.ParseLevel(cfg.Logging.Level); err == nil {
					level = parsed
				}
			}
			if opts.verbose {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			if opts.cfg != nil {
				logger.Debug("config loaded", "path", path, "exists", exists)
			}
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("scrapbook %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default ~/.config/scrapbook/config.toml or ./scrapbook.toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	root.AddCommand(newBackupCmd(opts))
	root.AddCommand(newAssetsCmd(opts))
	root.AddCommand(newRemoteCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "skip" || c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// skipConfig marks a command that must run without a valid config.
func skipConfig(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations["config"] = "skip"
	return cmd
}
