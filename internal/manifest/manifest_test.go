// SPDX-License-Identifier: MPL-2.0

package manifest_test

import (
	"errors"
	"testing"

	"rosimg-cli/internal/manifest"
)

func TestEntry_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   manifest.Entry
		wantErr bool
	}{
		{
			name:  "valid copy",
			entry: manifest.CopyEntry{Dest: "install_ros.sh", Source: "/srv/assets/install_ros.sh", Executable: true},
		},
		{
			name:  "valid render",
			entry: manifest.RenderEntry{Dest: "Dockerfile", Source: "/srv/assets/Dockerfile.tmpl", Context: map[string]any{}},
		},
		{
			name:  "valid create empty",
			entry: manifest.CreateEmptyEntry{Dest: "workspace", Dir: true},
		},
		{
			name:  "valid nested destination",
			entry: manifest.CopyEntry{Dest: "scripts/setup.sh", Source: "/srv/assets/setup.sh"},
		},
		{
			name:    "empty destination",
			entry:   manifest.CopyEntry{Dest: "", Source: "/srv/assets/x"},
			wantErr: true,
		},
		{
			name:    "absolute destination",
			entry:   manifest.CopyEntry{Dest: "/etc/passwd", Source: "/srv/assets/x"},
			wantErr: true,
		},
		{
			name:    "destination escaping root",
			entry:   manifest.CopyEntry{Dest: "../outside", Source: "/srv/assets/x"},
			wantErr: true,
		},
		{
			name:    "bare parent destination",
			entry:   manifest.CopyEntry{Dest: "..", Source: "/srv/assets/x"},
			wantErr: true,
		},
		{
			name:  "leading double dots in a plain name",
			entry: manifest.CopyEntry{Dest: "..config.swp", Source: "/srv/assets/x"},
		},
		{
			name:    "copy without source",
			entry:   manifest.CopyEntry{Dest: "file"},
			wantErr: true,
		},
		{
			name:    "render without context",
			entry:   manifest.RenderEntry{Dest: "Dockerfile", Source: "/srv/assets/Dockerfile.tmpl"},
			wantErr: true,
		},
		{
			name:    "render without source",
			entry:   manifest.RenderEntry{Dest: "Dockerfile", Context: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "windows reserved destination",
			entry:   manifest.CopyEntry{Dest: "scripts/con.sh", Source: "/srv/assets/x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, manifest.ErrInvalidEntry) {
				t.Errorf("Validate() error does not wrap ErrInvalidEntry: %v", err)
			}
		})
	}
}

func TestManifest_Add_RejectsDuplicateDestination(t *testing.T) {
	t.Parallel()

	m := manifest.New()
	if err := m.Add(manifest.CopyEntry{Dest: "entrypoint.sh", Source: "/srv/a", Executable: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := m.Add(manifest.CreateEmptyEntry{Dest: "entrypoint.sh"})
	if !errors.Is(err, manifest.ErrDuplicateDestination) {
		t.Errorf("expected ErrDuplicateDestination, got %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestManifest_Entries_SortedByDestination(t *testing.T) {
	t.Parallel()

	m := manifest.New()
	for _, dest := range []string{"rosbuild.sh", "Dockerfile", "entrypoint.sh", "dot_bash_aliases"} {
		if err := m.Add(manifest.CopyEntry{Dest: dest, Source: "/srv/" + dest}); err != nil {
			t.Fatalf("Add(%q): %v", dest, err)
		}
	}

	want := []string{"Dockerfile", "dot_bash_aliases", "entrypoint.sh", "rosbuild.sh"}
	entries := m.Entries()
	if len(entries) != len(want) {
		t.Fatalf("Entries() returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Destination() != want[i] {
			t.Errorf("Entries()[%d] = %q, want %q", i, e.Destination(), want[i])
		}
	}
}
