// Package version provides build-time information for the lanscan binary.
// Variables are injected at build time via ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"go.uber.org/zap"
)

// Service is the name reported in logs, health checks and --version.
const Service = "lanscan"

// probeModule is the module that sends the ICMP echoes.
const probeModule = "github.com/prometheus-community/pro-bing"

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, pro-bing: %s)",
		Service, Version, GitCommit, BuildDate, runtime.Version(), ProbeLibrary())
}

// Short returns just the version string (e.g., "0.1.0" or "dev").
func Short() string {
	return Version
}

// ProbeLibrary returns the pro-bing version linked into the binary, or
// "unknown" when build info is unavailable (e.g. in tests).
func ProbeLibrary() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return moduleVersion(bi, probeModule)
}

func moduleVersion(bi *debug.BuildInfo, path string) string {
	for _, dep := range bi.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return "unknown"
}

// Map returns version info as a map for JSON serialization.
func Map() map[string]string {
	return map[string]string{
		"service":    Service,
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"pro_bing":   ProbeLibrary(),
	}
}

// Fields returns the build info as structured log fields.
func Fields() []zap.Field {
	return []zap.Field{
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("build_date", BuildDate),
		zap.String("pro_bing", ProbeLibrary()),
	}
}
