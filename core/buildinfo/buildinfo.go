// Package buildinfo carries the version stamped in by the linker:
//
//	go build -ldflags "-X github.com/m3rciful/chainregbot/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/chainregbot/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/chainregbot/core/buildinfo.Date=$(date -u +%FT%TZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders the one-line version banner.
func String() string {
	date := Date
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, date)
}
