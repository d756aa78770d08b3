// SPDX-License-Identifier: MPL-2.0

// Package catalog maps ROS distribution names to their ROS major version
// and matching Ubuntu base release. A built-in catalog is embedded; a
// custom one can be loaded from a YAML file to support distros added
// after this binary was released.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"rosimg-cli/internal/imageref"
)

// Distro describes one ROS distribution.
type Distro struct {
	// ROSVersion is the ROS major version (1 or 2).
	ROSVersion int `yaml:"ros_version"`
	// UbuntuVersion is the matching Ubuntu release, e.g. "22.04".
	UbuntuVersion string `yaml:"ubuntu_version"`
}

// BaseImage returns the default base image for this distro.
func (d Distro) BaseImage() imageref.Reference {
	return imageref.Reference("ubuntu:" + d.UbuntuVersion)
}

// ErrDistroNotFound is the sentinel error wrapped by DistroNotFoundError.
var ErrDistroNotFound = errors.New("ros distro not found")

// DistroNotFoundError reports a lookup of a name absent from the catalog.
type DistroNotFoundError struct {
	// Name is the requested distro name.
	Name string
	// Known lists the catalog's distro names for the error message.
	Known []string
}

// Error implements the error interface.
func (e *DistroNotFoundError) Error() string {
	return fmt.Sprintf("invalid ros distro %q, allowed: %v", e.Name, e.Known)
}

// Unwrap returns ErrDistroNotFound so callers can use errors.Is.
func (e *DistroNotFoundError) Unwrap() error { return ErrDistroNotFound }

// Catalog is an immutable set of named distros.
type Catalog struct {
	distros map[string]Distro
}

// Lookup returns the distro for name, or a DistroNotFoundError.
func (c *Catalog) Lookup(name string) (Distro, error) {
	d, ok := c.distros[name]
	if !ok {
		return Distro{}, &DistroNotFoundError{Name: name, Known: c.Names()}
	}
	return d, nil
}

// Names returns all distro names sorted by ROS version, then Ubuntu
// version, then name. The order matches Help.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.distros))
	for name := range c.distros {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := c.distros[names[i]], c.distros[names[j]]
		if a.ROSVersion != b.ROSVersion {
			return a.ROSVersion < b.ROSVersion
		}
		if a.UbuntuVersion != b.UbuntuVersion {
			return a.UbuntuVersion < b.UbuntuVersion
		}
		return names[i] < names[j]
	})
	return names
}

// Help renders a human-readable listing of the available distros.
func (c *Catalog) Help() string {
	out := "Available ROS distros:\n"
	for _, name := range c.Names() {
		d := c.distros[name]
		out += fmt.Sprintf("    %-6s: ros%d, ubuntu %s.\n", name, d.ROSVersion, d.UbuntuVersion)
	}
	return out
}

func newCatalog(distros map[string]Distro) (*Catalog, error) {
	if len(distros) == 0 {
		return nil, errors.New("catalog has no distros")
	}
	for name, d := range distros {
		if d.ROSVersion != 1 && d.ROSVersion != 2 {
			return nil, fmt.Errorf("distro %q: unsupported ros version %d", name, d.ROSVersion)
		}
		if d.UbuntuVersion == "" {
			return nil, fmt.Errorf("distro %q: missing ubuntu version", name)
		}
	}
	return &Catalog{distros: distros}, nil
}

// Load reads a catalog from a YAML file of the same shape as the embedded
// default (a map of distro name to ros_version/ubuntu_version).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var distros map[string]Distro
	if err := yaml.Unmarshal(data, &distros); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return newCatalog(distros)
}
