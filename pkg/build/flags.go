// SPDX-License-Identifier: MIT
//
// Package build carries metadata injected at compile time via -ldflags:
// application name, build timestamp, Git commit and semantic version.
package build

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags during compilation, for example:
//
//	go build -ldflags "-X audiopipe/pkg/build.buildVersion=0.2.0"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	buildFlags = &ldFlags{
		Name:        "audiopipe",
		Description: "Real-time audio capture and musical feature extraction",
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
)

// Initialize copies any ldflags-provided values over the development
// defaults. Missing flags are not an error so that plain `go build` and
// `go test` binaries keep working.
func Initialize() {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
