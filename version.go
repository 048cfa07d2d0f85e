// Package storefront carries the build identity of the MiniMall storefront.
// The variables are set at link time:
//
//	go build -ldflags "-X github.com/minimall/storefront.Version=v1.2.0" ./cmd/storefront
package storefront

// Version information.
var (
	// Version is the release, "development" for local builds.
	Version = "development"

	// BuildDate is set during build time.
	BuildDate = "development"

	// GitCommit is set during build time.
	GitCommit = "unknown"
)
