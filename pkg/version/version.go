package version

// Set at build time with
// -ldflags "-X github.com/dmdmdm-nz/addrhookd/pkg/version.Version=..."
var (
	// Version contains the current version of addrhookd
	Version = "dev"

	// CommitHash contains the current git commit hash
	CommitHash = "unknown"

	// BuildTime contains the time of build
	BuildTime = "unknown"
)
