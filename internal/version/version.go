// Package version reports build information for the srcmerge binary.
// Values are injected with -ldflags and fall back to the module build info
// recorded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/srcmerge/internal/version.Version=v1.2.3"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const unknown = "unknown"

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty"`
}

// vcs holds the settings the toolchain stamps into the binary.
type vcs struct {
	module   string
	revision string
	modified bool
}

var readBuildInfo = debug.ReadBuildInfo

func stamped() vcs {
	var v vcs
	info, ok := readBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "(devel)" {
		v.module = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
}

// GetBuildInfo collects the build information of the running binary.
func GetBuildInfo() *BuildInfo {
	return &BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     stamped().modified,
	}
}

// GetVersion returns the injected version, the module version, or
// "dev-<short commit>" for untagged builds.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	v := stamped()
	if v.module != "" {
		return v.module
	}
	if len(v.revision) >= 7 {
		return "dev-" + v.revision[:7]
	}
	return "dev"
}

// GetGitCommit returns the full commit hash, or "unknown".
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != unknown {
		return GitCommit
	}
	if rev := stamped().revision; rev != "" {
		return rev
	}
	return unknown
}

// GetShortVersion returns the one-line version shown by --version.
func GetShortVersion() string {
	version := GetVersion()
	commit := GetGitCommit()
	if commit == unknown || len(commit) < 7 || strings.HasPrefix(version, "dev-") {
		return version
	}
	if version == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", version, commit[:7])
}

// IsRelease reports whether the binary was built from a tagged version.
func IsRelease() bool {
	v := GetVersion()
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

func parseBuildTime(s string) time.Time {
	if s == "" || s == unknown {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
