// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"rosimg-cli/internal/app/build"
	"rosimg-cli/internal/catalog"
	"rosimg-cli/internal/container"
	"rosimg-cli/internal/issue"
)

var (
	buildCache     bool
	buildPull      bool
	buildBaseImg   string
	buildAssetsDir string

	buildUseBaseImgEntrypoint bool
	buildEntrypoint           string
	buildNoEnvironment        bool
	buildEnvironment          string

	buildMetaTitle   string
	buildMetaDesc    string
	buildMetaAuthors string

	buildCmd = &cobra.Command{
		Use:   "build IMG_USER ROS_DISTRO IMG_ID",
		Short: "Build a ROS Docker image",
		Long: `Build a ROS Docker image.

Stages a temporary build context from the assets directory, runs the
container engine with deterministic build arguments and OCI labels, and
writes two log files per run: the complete engine output and the subset
of lines carrying build-step timestamps.

Arguments:
  IMG_USER    User to run containers for the resulting image
  ROS_DISTRO  ROS distro (see 'rosimg distros')
  IMG_ID      Image ID (tag) for the resulting image`,
		Args: cobra.ExactArgs(3),
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().BoolVarP(&buildCache, "cache", "c", false,
		"allow the engine to reuse cached layers (default is --no-cache)")
	buildCmd.Flags().BoolVarP(&buildPull, "pull", "p", false,
		"always attempt to pull/update the base image before building")
	buildCmd.Flags().StringVarP(&buildBaseImg, "base-img", "b", "",
		"base image (default: ubuntu:X.Y matched to the ROS distro)")
	buildCmd.Flags().StringVar(&buildAssetsDir, "assets-dir", ".",
		"directory holding the build scripts and templates")

	buildCmd.Flags().BoolVar(&buildUseBaseImgEntrypoint, "use-base-img-entrypoint", false,
		"inherit the base image's entrypoint instead of staging one")
	buildCmd.Flags().StringVar(&buildEntrypoint, "entrypoint", "",
		"path to a custom entrypoint script (replaces the default one)")
	buildCmd.Flags().BoolVar(&buildNoEnvironment, "no-environment", false,
		"do not include an environment script in the image")
	buildCmd.Flags().StringVar(&buildEnvironment, "environment", "",
		"path to a custom environment script (replaces the default one)")
	buildCmd.MarkFlagsMutuallyExclusive("use-base-img-entrypoint", "entrypoint")
	buildCmd.MarkFlagsMutuallyExclusive("no-environment", "environment")

	buildCmd.Flags().StringVar(&buildMetaTitle, "meta-title", "Docker image with ROS",
		"title for the image's OCI metadata")
	buildCmd.Flags().StringVar(&buildMetaDesc, "meta-desc", "Docker image for development and testing",
		"description for the image's OCI metadata")
	buildCmd.Flags().StringVar(&buildMetaAuthors, "meta-authors", defaultAuthors(),
		"authors for the image's OCI metadata")
}

// defaultAuthors returns the current OS user name, matching the metadata a
// developer would expect on a locally built image.
func defaultAuthors() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

func runBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	engine, err := container.NewEngine(container.EngineType(cfg.ContainerEngine))
	if err != nil {
		var notAvailable *container.ErrEngineNotAvailable
		if errors.As(err, &notAvailable) {
			renderIssue(issue.ContainerEngineNotFoundId)
		}
		return &ExitError{Code: 1, Err: err}
	}

	cat, err := loadCatalog()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	code, err := build.Run(cmd.Context(), build.Options{
		Engine:    engine,
		Catalog:   cat,
		Config:    cfg,
		Logger:    logger,
		Console:   os.Stdout,
		AssetsDir: buildAssetsDir,

		User:      args[0],
		Distro:    args[1],
		ImageID:   args[2],
		BaseImage: buildBaseImg,

		UseCache: buildCache,
		Pull:     buildPull,

		UseBaseImgEntrypoint: buildUseBaseImgEntrypoint,
		EntrypointPath:       buildEntrypoint,
		NoEnvironment:        buildNoEnvironment,
		EnvironmentPath:      buildEnvironment,

		MetaTitle:   buildMetaTitle,
		MetaDesc:    buildMetaDesc,
		MetaAuthors: buildMetaAuthors,
	})
	if err != nil {
		renderIssue(buildIssueID(err))
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		renderIssue(issue.BuildFailedId)
		return &ExitError{Code: code, Err: fmt.Errorf("build for %q failed with exit code %d", args[2], code)}
	}
	return nil
}

// loadCatalog returns the distro catalog, honoring a configured override file.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.Load(cfg.CatalogPath)
	}
	return catalog.Default(), nil
}
