// Package version records build metadata for the bitsmith CLI.  The
// variables are plain strings so release builds can stamp them with
// -ldflags "-X bitsmith/internal/version.Version=...".
package version

import "github.com/fatih/color"

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var bannerStyle = color.New(color.FgCyan, color.Bold)

// Banner renders the tool name with a highlighted version for terminal
// output.
func Banner() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	return "bitsmith " + bannerStyle.Sprint(v)
}
