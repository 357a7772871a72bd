package web

import "sync"

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Version: "dev", Commit: "unknown", BuildTime: "unknown"}
)

// SetVersionInfo records the build identity reported by /api/status.
func SetVersionInfo(version, commit, buildTime string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build = BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
}

// GetVersionInfo returns version, commit and build time.
func GetVersionInfo() (string, string, string) {
	b := GetBuildInfo()
	return b.Version, b.Commit, b.BuildTime
}

// GetBuildInfo returns the recorded build identity.
func GetBuildInfo() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}
