// SPDX-License-Identifier: MPL-2.0

package stage_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rosimg-cli/internal/manifest"
	"rosimg-cli/internal/stage"
)

// writeSource creates a source file for staging tests.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// newManifest builds a manifest from entries, failing the test on invalid ones.
func newManifest(t *testing.T, entries ...manifest.Entry) *manifest.Manifest {
	t.Helper()
	m := manifest.New()
	for _, e := range entries {
		if err := m.Add(e); err != nil {
			t.Fatalf("Add(%q): %v", e.Destination(), err)
		}
	}
	return m
}

func TestStage_AllActions(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	script := writeSource(t, srcDir, "install_ros.sh", "#!/bin/bash\napt-get install -y ros\n")
	tmpl := writeSource(t, srcDir, "Dockerfile.tmpl", "FROM {{.base_img}}\n")

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	m := newManifest(t,
		manifest.CopyEntry{Dest: "install_ros.sh", Source: script, Executable: true},
		manifest.RenderEntry{Dest: "Dockerfile", Source: tmpl, Context: map[string]any{"base_img": "ubuntu:22.04"}},
		manifest.CreateEmptyEntry{Dest: "colcon_ws", Dir: true},
		manifest.CreateEmptyEntry{Dest: "placeholder.txt"},
	)

	if err := ctx.Stage(m); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// Exactly one filesystem object per entry.
	listing, err := os.ReadDir(ctx.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(listing) != m.Len() {
		t.Errorf("context holds %d objects, want %d", len(listing), m.Len())
	}

	// Copied script carries the executable class.
	info, err := os.Stat(ctx.Path("install_ros.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != stage.ModeExecutable {
		t.Errorf("install_ros.sh mode = %o, want %o", info.Mode().Perm(), stage.ModeExecutable)
	}

	// Rendered Dockerfile has fresh bytes and the data class.
	content, err := os.ReadFile(ctx.Path("Dockerfile"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "FROM ubuntu:22.04\n" {
		t.Errorf("Dockerfile = %q", content)
	}
	info, err = os.Stat(ctx.Path("Dockerfile"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != stage.ModeData {
		t.Errorf("Dockerfile mode = %o, want %o", info.Mode().Perm(), stage.ModeData)
	}

	// CreateEmpty directory exists.
	info, err = os.Stat(ctx.Path("colcon_ws"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("colcon_ws is not a directory")
	}
}

func TestStage_Deterministic(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	script := writeSource(t, srcDir, "env.sh", "export ROS_DISTRO=humble\n")
	tmpl := writeSource(t, srcDir, "install.tmpl", "install {{.pkgs}}\n")

	stageOnce := func() map[string]string {
		ctx, err := stage.NewContext(t.TempDir())
		if err != nil {
			t.Fatalf("NewContext: %v", err)
		}
		defer func() { _ = ctx.Close() }()

		m := newManifest(t,
			manifest.CopyEntry{Dest: "env.sh", Source: script, Executable: true},
			manifest.RenderEntry{Dest: "install.sh", Source: tmpl, Context: map[string]any{"pkgs": "ros-base"}, Executable: true},
		)
		if err := ctx.Stage(m); err != nil {
			t.Fatalf("Stage: %v", err)
		}

		tree := make(map[string]string)
		err = filepath.Walk(ctx.Dir(), func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			rel, _ := filepath.Rel(ctx.Dir(), path)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			tree[rel] = info.Mode().Perm().String() + ":" + string(data)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return tree
	}

	first := stageOnce()
	second := stageOnce()

	if len(first) != len(second) {
		t.Fatalf("tree sizes differ: %d vs %d", len(first), len(second))
	}
	for name, want := range first {
		if got, ok := second[name]; !ok || got != want {
			t.Errorf("entry %q differs: %q vs %q", name, want, got)
		}
	}
}

func TestStage_MissingSourceAbortsBeforeLaterEntries(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	later := writeSource(t, srcDir, "zz_later.sh", "echo later\n")

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	m := newManifest(t,
		manifest.CopyEntry{Dest: "aa_missing.sh", Source: filepath.Join(srcDir, "nope.sh")},
		manifest.CopyEntry{Dest: "zz_later.sh", Source: later},
	)

	err = ctx.Stage(m)
	if !errors.Is(err, stage.ErrStaging) {
		t.Fatalf("expected StagingError, got %v", err)
	}
	var stagingErr *stage.StagingError
	if !errors.As(err, &stagingErr) || stagingErr.Dest != "aa_missing.sh" {
		t.Errorf("StagingError.Dest = %v, want aa_missing.sh", err)
	}

	// Nothing staged for the failing entry, nothing for later-ordered ones.
	if _, err := os.Stat(ctx.Path("aa_missing.sh")); !os.IsNotExist(err) {
		t.Error("aa_missing.sh should not exist")
	}
	if _, err := os.Stat(ctx.Path("zz_later.sh")); !os.IsNotExist(err) {
		t.Error("zz_later.sh should not have been staged after the failure")
	}
}

func TestStage_KindMismatchIsFatal(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(srcDir, "adir"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	// A directory behind a render entry is a kind mismatch.
	m := newManifest(t,
		manifest.RenderEntry{Dest: "Dockerfile", Source: filepath.Join(srcDir, "adir"), Context: map[string]any{}},
	)
	if err := ctx.Stage(m); !errors.Is(err, stage.ErrStaging) {
		t.Errorf("expected StagingError for kind mismatch, got %v", err)
	}
}

func TestStage_RenderFailureLeavesNoPartialFile(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	tmpl := writeSource(t, srcDir, "Dockerfile.tmpl", "FROM {{.base_img}}\nUSER {{.user}}\n")

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	m := newManifest(t,
		manifest.RenderEntry{Dest: "Dockerfile", Source: tmpl, Context: map[string]any{"base_img": "ubuntu:22.04"}},
	)

	if err := ctx.Stage(m); err == nil {
		t.Fatal("expected render failure for missing context variable")
	}
	if _, err := os.Stat(ctx.Path("Dockerfile")); !os.IsNotExist(err) {
		t.Error("a partially substituted Dockerfile was left on disk")
	}
}

func TestStage_DirectoryCopy(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	nested := filepath.Join(srcDir, "cfg", "sub")
	if err := os.MkdirAll(nested, 0o700); err != nil {
		t.Fatal(err)
	}
	writeSource(t, filepath.Join(srcDir, "cfg"), "a.yaml", "a: 1\n")
	writeSource(t, nested, "b.yaml", "b: 2\n")

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer func() { _ = ctx.Close() }()

	m := newManifest(t, manifest.CopyEntry{Dest: "cfg", Source: filepath.Join(srcDir, "cfg")})
	if err := ctx.Stage(m); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	info, err := os.Stat(ctx.Path(filepath.Join("cfg", "sub", "b.yaml")))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != stage.ModeData {
		t.Errorf("copied file mode = %o, want %o", info.Mode().Perm(), stage.ModeData)
	}
}

func TestContext_CloseRemovesTree(t *testing.T) {
	t.Parallel()

	ctx, err := stage.NewContext(t.TempDir())
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	dir := ctx.Dir()

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("context directory still exists after Close")
	}
	// Close is idempotent.
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
