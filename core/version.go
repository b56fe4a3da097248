package core

// Version, BuildTime and GitCommit are injected at build time:
//
//	go build -ldflags "-X caricature_studio/core.Version=$(git describe --tags --always)" .
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const versionPkg = "caricature_studio/core"

// GetVersionInfo returns e.g. "v1.2.0 (built 2026-01-15T10:30:00Z, commit abc1234)".
func GetVersionInfo() string {
	return Version + " (built " + BuildTime + ", commit " + GitCommit + ")"
}

// BuildLdflags returns the -X flags that inject the given values. Empty
// values are skipped.
func BuildLdflags(version, buildTime, gitCommit string) string {
	var flags string
	add := func(name, value string) {
		if value == "" {
			return
		}
		if flags != "" {
			flags += " "
		}
		flags += "-X " + versionPkg + "." + name + "=" + value
	}
	add("Version", version)
	add("BuildTime", buildTime)
	add("GitCommit", gitCommit)
	return flags
}
