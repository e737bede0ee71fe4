// Package version holds the build version, set with:
//
//	go build -ldflags "-X github.com/blackmagic-app/blackmagic/internal/version.Version=v0.3.0"
package version

import "runtime"

// Version is "dev" unless overridden at build time.
var Version = "dev"

// String returns the version with the Go runtime it was built with.
func String() string {
	return Version + " (" + runtime.Version() + ")"
}
