// Package env holds build metadata, set with
// -ldflags "-X github.com/ostafen/flashpart/internal/env.Version=...".
package env

const AppName = "flashpart"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)
