package version

import "runtime/debug"

// These vars are set at build time via:
//
//	go build -ldflags "-X litepg/version.Tag=v1.0.0 -X litepg/version.GitCommit=abc1234 -X litepg/version.BuildTime=2026-02-26T00:00:00Z"
var (
	Tag       = "dev"
	GitCommit = "" // empty = auto-detect from build info
	BuildTime = "" // empty = auto-detect from build info

	// ProtocolVersion is the PostgreSQL frontend/backend wire protocol
	// version this client speaks (3.0, introduced with PostgreSQL 7.4).
	ProtocolVersion = "3.0"
)

// String returns a banner identifying the client library and the build
// it came from, the same shape a server's own version string takes so
// it reads naturally in logs alongside ParameterStatus's server_version.
func String() string {
	commit, buildTime := GitCommit, BuildTime
	if commit == "" || buildTime == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					if commit == "" && len(s.Value) >= 8 {
						commit = s.Value[:8]
					}
				case "vcs.time":
					if buildTime == "" {
						buildTime = s.Value
					}
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if buildTime == "" {
		buildTime = "unknown"
	}
	return "litepg " + Tag + " (protocol " + ProtocolVersion + ", commit " + commit + ", built " + buildTime + ")"
}
