// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"rosimg-cli/internal/catalog"
	"rosimg-cli/internal/config"
	"rosimg-cli/internal/container"
)

// scriptedEngine runs a shell script in place of the engine binary.
type scriptedEngine struct {
	*container.BaseCLIEngine
	gotArgs []string
	started bool
}

func newScriptedEngine(script string) *scriptedEngine {
	e := &scriptedEngine{}
	e.BaseCLIEngine = container.NewBaseCLIEngine("docker",
		container.WithName("docker"),
		container.WithExecCommand(func(ctx context.Context, name string, args ...string) *exec.Cmd {
			e.gotArgs = args
			e.started = true
			return exec.CommandContext(ctx, "/bin/sh", "-c", script)
		}),
	)
	return e
}

func (e *scriptedEngine) Available() bool                         { return true }
func (e *scriptedEngine) Version(context.Context) (string, error) { return "0.0.0", nil }
func (e *scriptedEngine) ImageExists(context.Context, string) (bool, error) {
	return true, nil
}

// writeAssets populates a directory with the minimal asset set for the
// given ROS major version.
func writeAssets(t *testing.T, rosVersion int) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"Dockerfile.tmpl":        "FROM base\n# env: {{.UseEnvironment}}\n",
		"deduplicate_path.sh":    "#!/bin/bash\n",
		"dot_bash_aliases":       "alias ll='ls -la'\n",
		"install_base_system.sh": "#!/bin/bash\n",
		"install_ros.tmpl":       "#!/bin/bash\n# packages: {{.ROSPackages}}\n",
		"rosdep_init_update.sh":  "#!/bin/bash\n",
		"entrypoint.sh":          "#!/bin/bash\nexec \"$@\"\n",
	}
	files["ros"+map[int]string{1: "1", 2: "2"}[rosVersion]+"build.sh"] = "#!/bin/bash\n"
	files["environment_ros"+map[int]string{1: "1", 2: "2"}[rosVersion]+".tmpl"] = "export ROS_DISTRO={{.ROSDistro}}\n"
	files["packages_ros"+map[int]string{1: "1", 2: "2"}[rosVersion]+".txt"] = "ros-core\n"
	files["env_vars_ros"+map[int]string{1: "1", 2: "2"}[rosVersion]+".txt"] = "ROS_LOG_DIR=/tmp\n"

	if rosVersion == 2 {
		files["colcon_mixin_metadata.sh"] = "#!/bin/bash\n"
		files["rosdep_ignored_keys_ros2.yaml"] = "ignored: []\n"
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	return dir
}

func testOptions(t *testing.T, engine container.Engine, assetsDir string) Options {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LogDir = t.TempDir()
	cfg.ContextDir = t.TempDir()

	return Options{
		Engine:      engine,
		Catalog:     catalog.Default(),
		Config:      cfg,
		Logger:      log.NewWithOptions(io.Discard, log.Options{}),
		Console:     io.Discard,
		AssetsDir:   assetsDir,
		User:        "dev",
		Distro:      "noetic",
		ImageID:     "rosimg/noetic:latest",
		MetaTitle:   "test image",
		MetaDesc:    "test",
		MetaAuthors: "tester",
		Now:         func() time.Time { return time.Date(2024, 3, 15, 9, 30, 5, 0, time.UTC) },
	}
}

func TestValidateUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dev", "dev", false},
		{"  dev  ", "dev", false},
		{"root", "root", false},
		{"", "", true},
		{"   ", "", true},
		{"two words", "", true},
		{"tab\tseparated", "", true},
	}

	for _, tt := range tests {
		got, err := validateUser(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateUser(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("validateUser(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserHome(t *testing.T) {
	t.Parallel()

	if got := userHome("root"); got != "/root" {
		t.Errorf("userHome(root) = %q, want /root", got)
	}
	if got := userHome("dev"); got != "/home/dev" {
		t.Errorf("userHome(dev) = %q, want /home/dev", got)
	}
}

func TestAssembleManifestROS1(t *testing.T) {
	t.Parallel()

	opts := Options{AssetsDir: "/srv/assets"}
	distro, _ := catalog.Default().Lookup("noetic")
	m, err := assembleManifest(opts, contextInputs{
		distro: distro, distroName: "noetic", rosPackages: "ros-core", extraEnv: "A=1",
	})
	if err != nil {
		t.Fatalf("assembleManifest() error = %v", err)
	}

	dests := make(map[string]bool)
	for _, e := range m.Entries() {
		dests[e.Destination()] = true
	}

	for _, want := range []string{
		"Dockerfile", "deduplicate_path.sh", "dot_bash_aliases",
		"install_base_system.sh", "install_ros.sh", "rosbuild.sh",
		"rosdep_init_update.sh", "entrypoint.sh", "environment.sh",
	} {
		if !dests[want] {
			t.Errorf("manifest missing %q", want)
		}
	}
	for _, unwanted := range []string{"colcon_mixin_metadata.sh", "rosdep_ignored_keys.yaml"} {
		if dests[unwanted] {
			t.Errorf("manifest has ros2-only entry %q for a ros1 distro", unwanted)
		}
	}
}

func TestAssembleManifestROS2(t *testing.T) {
	t.Parallel()

	opts := Options{AssetsDir: "/srv/assets"}
	distro, _ := catalog.Default().Lookup("humble")
	m, err := assembleManifest(opts, contextInputs{
		distro: distro, distroName: "humble", rosPackages: "ros-core", extraEnv: "A=1",
	})
	if err != nil {
		t.Fatalf("assembleManifest() error = %v", err)
	}

	dests := make(map[string]bool)
	for _, e := range m.Entries() {
		dests[e.Destination()] = true
	}
	if !dests["colcon_mixin_metadata.sh"] || !dests["rosdep_ignored_keys.yaml"] {
		t.Error("manifest missing ros2-only entries")
	}
}

func TestAssembleManifestEntrypointVariants(t *testing.T) {
	t.Parallel()

	distro, _ := catalog.Default().Lookup("noetic")
	in := contextInputs{distro: distro, distroName: "noetic", rosPackages: "p", extraEnv: "e"}

	// Inherited entrypoint: no entrypoint.sh staged.
	m, err := assembleManifest(Options{AssetsDir: "/srv/assets", UseBaseImgEntrypoint: true}, in)
	if err != nil {
		t.Fatalf("assembleManifest() error = %v", err)
	}
	for _, e := range m.Entries() {
		if e.Destination() == "entrypoint.sh" {
			t.Error("entrypoint.sh staged despite UseBaseImgEntrypoint")
		}
	}

	// No environment: no environment.sh staged.
	m, err = assembleManifest(Options{AssetsDir: "/srv/assets", NoEnvironment: true}, in)
	if err != nil {
		t.Fatalf("assembleManifest() error = %v", err)
	}
	for _, e := range m.Entries() {
		if e.Destination() == "environment.sh" {
			t.Error("environment.sh staged despite NoEnvironment")
		}
	}

	// Custom entrypoint must exist and be non-empty.
	missing := filepath.Join(t.TempDir(), "nope.sh")
	if _, err := assembleManifest(Options{AssetsDir: "/srv/assets", EntrypointPath: missing}, in); err == nil {
		t.Error("assembleManifest() error = nil for missing custom entrypoint")
	}
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()

	engine := newScriptedEngine(`printf '[2024-03-15_09-30-06] step\nplain line\n'; exit 0`)
	opts := testOptions(t, engine, writeAssets(t, 1))

	code, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Fatalf("Run() code = %d, want 0", code)
	}

	args := strings.Join(engine.gotArgs, " ")
	for _, want := range []string{
		"build --file ",
		"--progress=plain",
		"--no-cache",
		"--build-arg BASE_IMG=ubuntu:20.04",
		"--build-arg REQUESTED_USER=dev",
		"--build-arg REQUESTED_USER_HOME=/home/dev",
		"--build-arg ROS_DISTRO=noetic",
		"--build-arg ROS_VERSION=1",
		"--label org.opencontainers.image.title=test image",
		"--tag rosimg/noetic:latest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("engine args = %q, want substring %q", args, want)
		}
	}

	// Both log artifacts survive: the complete log has content and one line
	// carries the timestamp marker.
	logs, err := filepath.Glob(filepath.Join(opts.Config.LogDir, "build_img_*_complete.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("complete log glob = %v (err %v), want exactly one", logs, err)
	}
	specific, err := filepath.Glob(filepath.Join(opts.Config.LogDir, "build_img_*_specific.log"))
	if err != nil || len(specific) != 1 {
		t.Fatalf("specific log glob = %v (err %v), want exactly one", specific, err)
	}
	data, err := os.ReadFile(specific[0])
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := string(data); got != "[2024-03-15_09-30-06] step\n" {
		t.Errorf("specific log = %q", got)
	}
}

func TestRunContextDirIsRemoved(t *testing.T) {
	t.Parallel()

	engine := newScriptedEngine(`exit 0`)
	opts := testOptions(t, engine, writeAssets(t, 1))

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	leftovers, err := filepath.Glob(filepath.Join(opts.Config.ContextDir, "context_*"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("context directories left behind: %v", leftovers)
	}
}

func TestRunCancellationMidBuild(t *testing.T) {
	t.Parallel()

	// The engine prints one line and then blocks far longer than the test
	// is willing to wait; cancellation must kill it. exec keeps sleep as
	// the direct child so the kill also releases the output pipe.
	engine := newScriptedEngine(`printf 'step one\n'; exec sleep 60`)
	opts := testOptions(t, engine, writeAssets(t, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	var code int
	go func() {
		code, _ = Run(ctx, opts)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}

	if code == 0 {
		t.Error("Run() code = 0 after mid-build cancellation")
	}

	// The temporary context directory must be gone even on the aborted path.
	leftovers, err := filepath.Glob(filepath.Join(opts.Config.ContextDir, "context_*"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("context directories left behind after cancellation: %v", leftovers)
	}
}

func TestRunPropagatesBuildFailure(t *testing.T) {
	t.Parallel()

	engine := newScriptedEngine(`printf 'engine error\n' >&2; exit 3`)
	opts := testOptions(t, engine, writeAssets(t, 1))

	code, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Run() code = %d, want 3", code)
	}
}

func TestRunPullFlagOnlyWhenRequested(t *testing.T) {
	t.Parallel()

	engine := newScriptedEngine(`exit 0`)
	opts := testOptions(t, engine, writeAssets(t, 1))
	opts.Pull = true

	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(strings.Join(engine.gotArgs, " "), "--pull") {
		t.Error("engine args missing --pull despite request")
	}

	engine2 := newScriptedEngine(`exit 0`)
	opts2 := testOptions(t, engine2, writeAssets(t, 1))

	if _, err := Run(context.Background(), opts2); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.Contains(strings.Join(engine2.gotArgs, " "), "--pull") {
		t.Error("engine args contain --pull without request")
	}
}

func TestRunValidationFailuresNeverStartEngine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"empty user", func(o *Options) { o.User = "" }},
		{"whitespace user", func(o *Options) { o.User = "a b" }},
		{"unknown distro", func(o *Options) { o.Distro = "indigo" }},
		{"invalid image id", func(o *Options) { o.ImageID = "UPPER:tag" }},
		{"invalid base image", func(o *Options) { o.BaseImage = "repo//x" }},
		{"missing assets", func(o *Options) { o.AssetsDir = "/nonexistent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := newScriptedEngine(`exit 0`)
			opts := testOptions(t, engine, writeAssets(t, 1))
			tt.mutate(&opts)

			code, err := Run(context.Background(), opts)
			if err == nil {
				t.Fatal("Run() error = nil, want validation error")
			}
			if code == 0 {
				t.Error("Run() code = 0 for a failed validation")
			}
			if engine.started {
				t.Error("engine was started despite a validation failure")
			}
		})
	}
}

func TestRunEmptyInputFileFails(t *testing.T) {
	t.Parallel()

	engine := newScriptedEngine(`exit 0`)
	assets := writeAssets(t, 1)
	if err := os.WriteFile(filepath.Join(assets, "packages_ros1.txt"), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	opts := testOptions(t, engine, assets)

	_, err := Run(context.Background(), opts)
	if err == nil {
		t.Fatal("Run() error = nil, want empty-input error")
	}
	if !errors.Is(err, ErrInputFile) {
		t.Errorf("Run() error = %v, want ErrInputFile in the chain", err)
	}
	if engine.started {
		t.Error("engine was started despite an empty package list")
	}
}

func TestRunROS2StagesExtraFiles(t *testing.T) {
	t.Parallel()

	var stagedContext string
	engine := newScriptedEngine(`exit 0`)
	opts := testOptions(t, engine, writeAssets(t, 2))
	opts.Distro = "humble"
	opts.ImageID = "rosimg/humble:latest"

	// The context dir is deleted after Run, so verify through the args
	// that the Dockerfile path points inside a context_ directory.
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, arg := range engine.gotArgs {
		if arg == "--file" && i+1 < len(engine.gotArgs) {
			stagedContext = filepath.Dir(engine.gotArgs[i+1])
		}
	}
	if !strings.Contains(stagedContext, "context_") {
		t.Errorf("build file not inside a staged context directory: %q", stagedContext)
	}
	if !strings.Contains(strings.Join(engine.gotArgs, " "), "--build-arg ROS_VERSION=2") {
		t.Error("engine args missing ROS_VERSION=2 for humble")
	}
}
