// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rosimg-cli/internal/config"
	"rosimg-cli/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded configuration, populated by initRootConfig.
	cfg = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "rosimg",
		Short: "Build ROS development Docker images",
		Long: TitleStyle.Render("rosimg") + SubtitleStyle.Render(" - Build ROS development Docker images") + `

rosimg stages a Docker build context from a set of scripts and templates,
invokes the container engine (Docker or Podman), and captures the build
output into timestamped log files.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Point rosimg at an assets directory with the build scripts
  2. Pick a ROS distro (see 'rosimg distros')
  3. Build: rosimg build <user> <distro> <image-id>

` + SubtitleStyle.Render("Examples:") + `
  rosimg build dev humble myrepo/ros2-humble:latest
  rosimg build -p root noetic ros1-ci
  rosimg distros            List the known ROS distros
  rosimg config show        Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/rosimg/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(distrosCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in the config file if one exists.
func initRootConfig() {
	loaded, err := config.NewProvider().Load(context.Background(), config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
	if err != nil {
		// Always surface config loading errors to the user
		renderIssue(issue.ConfigLoadFailedId)
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return
	}
	cfg = loaded

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}
}

// newLogger builds the application logger honoring the verbose flag.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "rosimg",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
