package constant

// Set at build time via -ldflags "-X portalgate/constant.Version=..."
var (
	Version = "devel"
	Commit  = "unknown"
)
