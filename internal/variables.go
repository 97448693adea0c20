package internal

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (

	// Name of the daemon, used for logging groups, paths and the CLI.
	Name = "relaxd"

	// Shown when a build variable was not set.
	undefined = "(undefined)"

	// Branch whose builds carry no stage suffix.
	mainBranch = "main"
)

// Set via -ldflags "-X github.com/relaxhq/relaxd/internal.version=..." and
// friends by release builds.
var (
	version   = "" // Release version (e.g., "1.2.3" or "v1.2.3").
	stage     = "" // Branch the release was cut from (e.g., "main").
	gitCommit = "" // Commit hash the release was built from.

	rawQuiet   = "false" // Default for quiet mode.
	rawDebug   = "false" // Default for debug mode.
	rawVerbose = "false" // Default for verbose logging.
)

// Returns the release version without a leading "v".
//
// Falls back to the main module version recorded by the Go toolchain when
// the linker variable is unset, and to "(undefined)" when neither exists.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		v = moduleVersion()
	}
	if v == "" {
		return undefined
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns the build stage, or "(undefined)".
func Stage() string {
	if s := strings.TrimSpace(stage); s != "" {
		return strings.ToLower(s)
	}
	return undefined
}

// Returns the git commit hash.
//
// Falls back to the VCS revision stamped by the Go toolchain.
func GitCommit() string {
	if c := strings.TrimSpace(gitCommit); c != "" {
		return c
	}
	if c := buildSetting("vcs.revision"); c != "" {
		return c
	}
	return undefined
}

// Returns true unless all release variables were set by the linker.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns a one-line description of the build.
//
// Release builds render as "<version>[+<stage>] <commit> [<arch>]". Local
// builds render as "(local) <commit> [<arch>]".
func VersionString() string {
	if IsLocal() {
		return fmt.Sprintf("(local) %s [%s]", GitCommit(), runtime.GOARCH)
	}

	suffix := ""
	if s := Stage(); s != mainBranch {
		suffix = "+" + s
	}
	return fmt.Sprintf("%s%s %s [%s]", Version(), suffix, GitCommit(), runtime.GOARCH)
}

// Returns the main module version from the embedded build info.
func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "(devel)" {
		return ""
	}
	return info.Main.Version
}

// Returns a build setting from the embedded build info.
func buildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
