// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions selects where configuration is loaded from. The zero value
// means the per-user config directory.
type LoadOptions struct {
	// ConfigFilePath forces loading from one specific config file; loading
	// fails if it does not exist.
	ConfigFilePath string
	// ConfigDirPath replaces the per-user config directory lookup.
	ConfigDirPath string
}

// Provider loads the rosimg configuration.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider returns the CUE-file-backed configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// configDirOverride redirects ConfigDir for tests. os.UserHomeDir does not
// reliably respect the HOME environment variable on every platform, so tests
// cannot steer the lookup through the environment alone.
var configDirOverride string

// SetConfigDirOverride points ConfigDir at dir until Reset is called.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset clears the config directory override. Call from test cleanup.
func Reset() {
	configDirOverride = ""
}
