// SPDX-License-Identifier: MPL-2.0

// Package invoke assembles and executes a single container image build:
// it turns resolved build inputs into a deterministic engine command line,
// decides the base-image pull policy, and streams the child process output
// through a log multiplexer.
package invoke

import (
	"sort"

	"rosimg-cli/internal/imageref"
)

// KV is a single key=value pair passed to the engine as a flag argument.
type KV struct {
	Key   string
	Value string
}

// Invocation is the fully resolved description of one build command line.
// It is immutable once constructed; NewInvocation copies and sorts the
// flag pairs so the resulting argument vector is reproducible.
type Invocation struct {
	contextDir     string
	buildFile      string
	tag            imageref.Reference
	buildArgs      []KV
	labels         []KV
	useCache       bool
	pull           bool
	enableBuildKit bool
}

// InvocationParams holds the inputs to NewInvocation. BuildArgs and Labels
// may be in any order; they are sorted by key before use.
type InvocationParams struct {
	// ContextDir is the staged build context directory.
	ContextDir string
	// BuildFile is the path of the Dockerfile inside ContextDir.
	BuildFile string
	// Tag is the target image reference.
	Tag imageref.Reference
	// BuildArgs become sorted --build-arg key=value flags.
	BuildArgs []KV
	// Labels become sorted --label key=value flags.
	Labels []KV
	// UseCache keeps the engine layer cache; when false --no-cache is added.
	UseCache bool
	// Pull adds the --pull flag.
	Pull bool
	// EnableBuildKit sets DOCKER_BUILDKIT=1 in the child environment.
	EnableBuildKit bool
}

// NewInvocation builds an immutable Invocation from params.
func NewInvocation(params InvocationParams) Invocation {
	buildArgs := sortedPairs(params.BuildArgs)
	labels := sortedPairs(params.Labels)

	return Invocation{
		contextDir:     params.ContextDir,
		buildFile:      params.BuildFile,
		tag:            params.Tag,
		buildArgs:      buildArgs,
		labels:         labels,
		useCache:       params.UseCache,
		pull:           params.Pull,
		enableBuildKit: params.EnableBuildKit,
	}
}

func sortedPairs(pairs []KV) []KV {
	out := make([]KV, len(pairs))
	copy(out, pairs)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Tag returns the target image reference.
func (inv Invocation) Tag() imageref.Reference { return inv.tag }

// ContextDir returns the staged build context directory.
func (inv Invocation) ContextDir() string { return inv.contextDir }

// Args returns the engine argument vector (without the engine binary name).
// The order is fixed: build, --file, --progress=plain, optional --pull,
// optional --no-cache, sorted --build-arg flags, sorted --label flags,
// --tag, and finally the context directory.
func (inv Invocation) Args() []string {
	args := []string{
		"build",
		"--file", inv.buildFile,
		"--progress=plain",
	}
	if inv.pull {
		args = append(args, "--pull")
	}
	if !inv.useCache {
		args = append(args, "--no-cache")
	}
	for _, kv := range inv.buildArgs {
		args = append(args, "--build-arg", kv.Key+"="+kv.Value)
	}
	for _, kv := range inv.labels {
		args = append(args, "--label", kv.Key+"="+kv.Value)
	}
	args = append(args, "--tag", string(inv.tag), inv.contextDir)
	return args
}

// Env returns the extra child-process environment for this invocation.
// BuildKit is enabled for the child only; the parent environment is
// never mutated.
func (inv Invocation) Env() map[string]string {
	if !inv.enableBuildKit {
		return nil
	}
	return map[string]string{"DOCKER_BUILDKIT": "1"}
}
