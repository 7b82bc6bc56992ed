// ABOUTME: Version constants for the chipstream binaries
// ABOUTME: Single place to bump release information
package version

const (
	// Version is the current release.
	Version = "0.1.0"

	// Product is the user-visible product name.
	Product = "Chipstream Speaker"
)
