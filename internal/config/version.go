package config

// Version is the oversight binary version.
// Set at build time via: -ldflags "-X github.com/oversightlabs/oversight/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
