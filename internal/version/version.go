// Package version holds build metadata stamped via -ldflags by the release
// build; the defaults identify a plain `go build`.
package version

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
