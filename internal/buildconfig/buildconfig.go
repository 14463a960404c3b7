// Package buildconfig exposes values stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/arborvote/arborvote/internal/buildconfig.version=v0.3.0 \
//	  -X github.com/arborvote/arborvote/internal/buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

import "runtime"

const serviceName = "arborvote"

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// VersionInfo is the payload served on /version.
func VersionInfo() map[string]string {
	info := map[string]string{
		"service":    serviceName,
		"version":    version,
		"commit":     commit,
		"go_version": runtime.Version(),
	}
	if buildDate != "" {
		info["build_date"] = buildDate
	}
	return info
}
