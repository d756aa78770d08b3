// SPDX-License-Identifier: MPL-2.0

// Package build orchestrates one image build end to end: input validation,
// context staging, engine invocation, and log finalization.
package build

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"rosimg-cli/internal/buildlog"
	"rosimg-cli/internal/catalog"
	"rosimg-cli/internal/config"
	"rosimg-cli/internal/container"
	"rosimg-cli/internal/imageref"
	"rosimg-cli/internal/invoke"
	"rosimg-cli/internal/stage"
)

// Options carries everything one build run needs. Engine, Catalog, Config,
// Logger and Console are collaborators; the rest mirrors the command line.
type Options struct {
	Engine  container.Engine
	Catalog *catalog.Catalog
	Config  *config.Config
	Logger  *log.Logger
	Console io.Writer

	// AssetsDir holds the scripts and templates staged into the context.
	AssetsDir string

	// User is the account the image is prepared for.
	User string
	// Distro is the requested ROS distro name.
	Distro string
	// ImageID is the target image reference.
	ImageID string
	// BaseImage overrides the distro's default base image when non-empty.
	BaseImage string

	UseCache bool
	Pull     bool

	// UseBaseImgEntrypoint inherits the base image entrypoint instead of
	// staging one. Mutually exclusive with EntrypointPath.
	UseBaseImgEntrypoint bool
	// EntrypointPath is a custom entrypoint script.
	EntrypointPath string
	// NoEnvironment skips the environment script entirely. Mutually
	// exclusive with EnvironmentPath.
	NoEnvironment bool
	// EnvironmentPath is a custom environment script.
	EnvironmentPath string

	MetaTitle   string
	MetaDesc    string
	MetaAuthors string

	// Now supplies timestamps; tests inject a fixed clock. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

// Run performs one build and returns the process exit code: 0 only when the
// build and all log bookkeeping succeeded. Validation failures return an
// error before any engine work starts.
func Run(ctx context.Context, opts Options) (int, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger

	user, err := validateUser(opts.User)
	if err != nil {
		return 1, err
	}
	home := userHome(user)

	distroName := strings.ToLower(strings.TrimSpace(opts.Distro))
	distro, err := opts.Catalog.Lookup(distroName)
	if err != nil {
		return 1, err
	}

	tag := imageref.Reference(strings.TrimSpace(opts.ImageID))
	if err := tag.Validate(); err != nil {
		return 1, err
	}

	baseImage := imageref.Reference(strings.TrimSpace(opts.BaseImage))
	if baseImage == "" {
		baseImage = distro.BaseImage()
		logger.Info("no base image specified, using distro default",
			"base_img", baseImage, "distro", distroName, "ros_version", distro.ROSVersion)
	}
	if err := baseImage.Validate(); err != nil {
		return 1, err
	}

	rosPackages, err := readRequiredFile(
		filepath.Join(opts.AssetsDir, "packages_ros"+strconv.Itoa(distro.ROSVersion)+".txt"))
	if err != nil {
		return 1, err
	}
	extraEnv, err := readRequiredFile(
		filepath.Join(opts.AssetsDir, "env_vars_ros"+strconv.Itoa(distro.ROSVersion)+".txt"))
	if err != nil {
		return 1, err
	}

	m, err := assembleManifest(opts, contextInputs{
		distro:      distro,
		distroName:  distroName,
		rosPackages: rosPackages,
		extraEnv:    extraEnv,
	})
	if err != nil {
		return 1, err
	}

	sc, err := stage.NewContext(opts.Config.ContextDir, stage.WithLogger(logger))
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := sc.Close(); err != nil {
			logger.Warn("failed to remove context directory", "dir", sc.Dir(), "error", err)
		}
	}()
	logger.Info("created temporary context directory", "dir", sc.Dir())

	if err := sc.Stage(m); err != nil {
		return 1, err
	}

	pullFlag, notice := invoke.DecidePull(opts.Pull, invoke.DetectLocalImage(ctx, opts.Engine, baseImage), baseImage)
	logger.Info(notice)

	inv := invoke.NewInvocation(invoke.InvocationParams{
		ContextDir: sc.Dir(),
		BuildFile:  sc.Path("Dockerfile"),
		Tag:        tag,
		BuildArgs: []invoke.KV{
			{Key: "BASE_IMG", Value: string(baseImage)},
			{Key: "REQUESTED_USER", Value: user},
			{Key: "REQUESTED_USER_HOME", Value: home},
			{Key: "ROS_DISTRO", Value: distroName},
			{Key: "ROS_VERSION", Value: strconv.Itoa(distro.ROSVersion)},
		},
		Labels: []invoke.KV{
			{Key: "org.opencontainers.image.created", Value: now().UTC().Format(time.RFC3339)},
			{Key: "org.opencontainers.image.title", Value: strings.TrimSpace(opts.MetaTitle)},
			{Key: "org.opencontainers.image.authors", Value: strings.TrimSpace(opts.MetaAuthors)},
			{Key: "org.opencontainers.image.description", Value: strings.TrimSpace(opts.MetaDesc)},
		},
		UseCache:       opts.UseCache,
		Pull:           pullFlag,
		EnableBuildKit: opts.Config.Build.BuildKit,
	})

	artifact := buildlog.NewArtifact(opts.Config.LogDir, tag, now())

	logger.Info("building image",
		"image", tag, "base_img", baseImage, "user", user,
		"distro", "ROS"+strconv.Itoa(distro.ROSVersion)+"-"+distroName,
		"engine", opts.Engine.Name())
	logger.Debug("engine invocation", "args", strings.Join(inv.Args(), " "))

	mux, err := buildlog.NewMultiplexer(opts.Console, artifact.CompleteLogPath)
	if err != nil {
		return 1, err
	}

	code, runErr := invoke.NewInvoker(opts.Engine).Run(ctx, inv, mux)
	if closeErr := mux.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}

	if ctx.Err() != nil {
		logger.Warn("build aborted", "image", tag)
	}

	switch {
	case runErr != nil:
		logger.Error("build did not complete", "image", tag, "error", runErr)
		if code == 0 {
			code = 1
		}
	case code == 0:
		logger.Info("build process ended with SUCCESS", "image", tag)
	default:
		logger.Error("build process ended with FAILURE", "image", tag, "exit_code", code)
	}

	if err := buildlog.Finalize(artifact, logger); err != nil {
		logger.Error("log cleanup failed", "error", err)
		// A cleanup failure must not mask a build failure, but it does turn
		// an otherwise successful run into a failed one.
		if code == 0 && errors.Is(err, buildlog.ErrCleanup) {
			code = 1
		}
	}

	return code, runErr
}
