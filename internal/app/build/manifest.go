// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"path/filepath"

	"rosimg-cli/internal/catalog"
	"rosimg-cli/internal/manifest"
)

// contextInputs are the resolved values the manifest assembly needs beyond
// the raw options: the distro record and the contents of the required
// input files.
type contextInputs struct {
	distro      catalog.Distro
	distroName  string
	rosPackages string
	extraEnv    string
}

// assembleManifest builds the full provisioning manifest for one image.
// Sources are resolved against the assets directory except user-supplied
// override files, which are absolute. The Dockerfile and the install and
// environment scripts are templates; everything else is copied verbatim.
func assembleManifest(opts Options, in contextInputs) (*manifest.Manifest, error) {
	asset := func(name string) string { return filepath.Join(opts.AssetsDir, name) }
	useEnvironment := !opts.NoEnvironment

	m := manifest.New()
	entries := []manifest.Entry{
		manifest.RenderEntry{
			Dest:   "Dockerfile",
			Source: asset("Dockerfile.tmpl"),
			Context: map[string]any{
				"UseBaseImgEntrypoint": opts.UseBaseImgEntrypoint,
				"UseEnvironment":       useEnvironment,
				"ExtraROSEnvVars":      in.extraEnv,
			},
		},
		manifest.CopyEntry{Dest: "deduplicate_path.sh", Source: asset("deduplicate_path.sh"), Executable: true},
		manifest.CopyEntry{Dest: "dot_bash_aliases", Source: asset("dot_bash_aliases"), Executable: true},
		manifest.CopyEntry{Dest: "install_base_system.sh", Source: asset("install_base_system.sh"), Executable: true},
		manifest.RenderEntry{
			Dest:   "install_ros.sh",
			Source: asset("install_ros.tmpl"),
			Context: map[string]any{
				"UseEnvironment": useEnvironment,
				"ROSPackages":    in.rosPackages,
			},
			Executable: true,
		},
		manifest.CopyEntry{
			Dest:       "rosbuild.sh",
			Source:     asset(fmt.Sprintf("ros%dbuild.sh", in.distro.ROSVersion)),
			Executable: true,
		},
		manifest.CopyEntry{Dest: "rosdep_init_update.sh", Source: asset("rosdep_init_update.sh"), Executable: true},
	}

	if in.distro.ROSVersion == 2 {
		entries = append(entries,
			manifest.CopyEntry{Dest: "colcon_mixin_metadata.sh", Source: asset("colcon_mixin_metadata.sh"), Executable: true},
			manifest.CopyEntry{Dest: "rosdep_ignored_keys.yaml", Source: asset("rosdep_ignored_keys_ros2.yaml")},
		)
	}

	if !opts.UseBaseImgEntrypoint {
		source := asset("entrypoint.sh")
		if opts.EntrypointPath != "" {
			resolved, err := resolveCustomFile(opts.EntrypointPath)
			if err != nil {
				return nil, err
			}
			source = resolved
		}
		entries = append(entries, manifest.CopyEntry{Dest: "entrypoint.sh", Source: source, Executable: true})
	}

	if useEnvironment {
		if opts.EnvironmentPath != "" {
			resolved, err := resolveCustomFile(opts.EnvironmentPath)
			if err != nil {
				return nil, err
			}
			entries = append(entries, manifest.CopyEntry{Dest: "environment.sh", Source: resolved, Executable: true})
		} else {
			entries = append(entries, manifest.RenderEntry{
				Dest:       "environment.sh",
				Source:     asset(fmt.Sprintf("environment_ros%d.tmpl", in.distro.ROSVersion)),
				Context:    map[string]any{"ROSDistro": in.distroName},
				Executable: true,
			})
		}
	}

	for _, e := range entries {
		if err := m.Add(e); err != nil {
			return nil, err
		}
	}
	return m, nil
}
