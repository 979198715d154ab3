package routes

import (
	"net/http"
	"runtime"
	"runtime/debug"

	"pixshift/logger"
)

// Set with -ldflags "-X pixshift/routes.version=..." in release builds.
var version = "dev"

// VersionResponse represents the version information response
type VersionResponse struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

func buildVersion() VersionResponse {
	resp := VersionResponse{Version: version, GoVersion: runtime.Version()}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return resp
	}
	if resp.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		resp.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			resp.GitCommit = s.Value
		case "vcs.time":
			resp.BuildTime = s.Value
		case "vcs.modified":
			resp.Modified = s.Value == "true"
		}
	}
	return resp
}

// VersionHandler provides version information about the build
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Version request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for version endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, buildVersion())
}
