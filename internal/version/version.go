// Package version carries build metadata injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	GitVersion    = "dev"
	BuildMetadata = ""
	GitCommit     = ""
)

func GetVersion() string {
	if BuildMetadata != "" {
		return fmt.Sprintf("%s+%s", GitVersion, BuildMetadata)
	}
	return GitVersion
}

func GetVersionInfo() map[string]string {
	commit := GitCommit
	if commit == "" {
		commit = "unknown"
	}
	return map[string]string{
		"version":   GetVersion(),
		"gitCommit": commit,
		"goVersion": runtime.Version(),
		"platform":  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
