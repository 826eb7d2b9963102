// Package version reports build identity. Values are injected at link time:
//
//	go build -ldflags "-X github.com/farcloser/lufs/version.version=v1.0.0 -X github.com/farcloser/lufs/version.commit=abc123"
package version

import "runtime/debug"

const name = "lufs"

//nolint:gochecknoglobals // set through -ldflags
var (
	version = ""
	commit  = ""
)

func Name() string {
	return name
}

// Version returns the release version, falling back to the module version recorded in the binary.
func Version() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

// Commit returns the VCS revision the binary was built from, if known.
func Commit() string {
	if commit != "" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}
