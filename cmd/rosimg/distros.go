// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var distrosCmd = &cobra.Command{
	Use:   "distros",
	Short: "List the known ROS distros",
	Long: `List the known ROS distros.

Each entry maps a distro name to its ROS major version and the Ubuntu
release used as the default base image. A custom catalog file can be
configured via 'catalog_path' in the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		fmt.Fprint(cmd.OutOrStdout(), cat.Help())
		return nil
	},
}
