// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"rosimg-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage rosimg configuration",
	Long: `Manage rosimg configuration.

Configuration is stored in:
  - Linux: ~/.config/rosimg/config.cue
  - macOS: ~/Library/Application Support/rosimg/config.cue
  - Windows: %APPDATA%\rosimg\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfig(); err != nil {
				return err
			}
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Configuration ready: ")+
				filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})
}
