package version

// Version is the crawler release, overridden at build time with
// -ldflags "-X github.com/alvmarrod/bfs-crawler/internal/version.Version=..."
var Version = "0.3.0"
