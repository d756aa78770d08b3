// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ContainerEngineNotFoundId Id = iota + 1
	InvalidImageRefId
	DistroNotFoundId
	InputFileMissingId
	ConfigLoadFailedId
	BuildFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.extLinks {
			extraMd += "- " + string(link) + "\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

No usable container engine is available to run the image build.

## Supported container engines:
- **Docker**
- **Podman**

## Things you can try:
- Install Docker:
  - https://docs.docker.com/get-docker/

- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `

- Check that the engine daemon is running:
~~~
$ docker version
~~~

- Configure your preferred engine in the config file:
~~~cue
container_engine: "podman"  // or "docker"
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/get-docker/", "https://podman.io"},
	}

	invalidImageRefIssue = &Issue{
		id: InvalidImageRefId,
		mdMsg: `
# Invalid image reference!

The image name you supplied does not match the accepted reference grammar.

## Valid examples:
- ` + "`ubuntu:22.04`" + `
- ` + "`myrepo/ros2-humble`" + `
- ` + "`registry.example.com:5000/team/img:v1.2`" + `

## Rules:
- Path components are lowercase letters and digits, joined by single dots,
  one or two underscores, or runs of dashes
- An optional ` + "`host[:port]/`" + ` registry prefix is allowed
- The optional tag after ` + "`:`" + ` may use letters, digits, ` + "`_`" + `, ` + "`.`" + ` and ` + "`-`" + ``,
		extLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/image/tag/"},
	}

	distroNotFoundIssue = &Issue{
		id: DistroNotFoundId,
		mdMsg: `
# Unknown ROS distro!

The requested ROS distro is not in the catalog.

## Things you can try:
- List the known distros:
~~~
$ rosimg distros
~~~

- Check for typos (distro names are lowercase, e.g. ` + "`humble`" + `)
- Load a custom catalog file if you target a distro newer than this tool`,
		extLinks: []HttpLink{"https://docs.ros.org/en/rolling/Releases.html"},
	}

	inputFileMissingIssue = &Issue{
		id: InputFileMissingId,
		mdMsg: `
# Required input file missing or empty!

Every build needs a non-empty package list and environment file matching the
ROS major version of the requested distro.

## Expected files in the assets directory:
- ` + "`packages_ros1.txt` / `packages_ros2.txt`" + `
- ` + "`env_vars_ros1.txt` / `env_vars_ros2.txt`" + `

## Things you can try:
- Check the assets directory layout
- Create the file with at least one entry
- Pass the correct assets directory on the command line`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the rosimg configuration file.

## Configuration file locations:
- Linux: ~/.config/rosimg/config.cue
- macOS: ~/Library/Application Support/rosimg/config.cue
- Windows: %APPDATA%\rosimg\config.cue

## Things you can try:
- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/rosimg/config.cue
~~~

## Example configuration:
~~~cue
container_engine: "docker"
log_dir: "/tmp"

build: {
  buildkit: true
}
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Image build failed!

The container engine reported a non-zero exit code.

## Things you can try:
- Read the complete build log written next to your temp directory
  (its path was printed above)
- Re-run with ` + "`--pull`" + ` if a stale base image may be the cause
- Re-run without cache problems by omitting ` + "`--cache`" + `
- Check network access for package downloads inside the build`,
	}

	issues = map[Id]*Issue{
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		invalidImageRefIssue.Id():         invalidImageRefIssue,
		distroNotFoundIssue.Id():          distroNotFoundIssue,
		inputFileMissingIssue.Id():        inputFileMissingIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		buildFailedIssue.Id():             buildFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
