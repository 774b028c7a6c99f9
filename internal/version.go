package internal

// Version is the application version, overridden at build time via
// -ldflags "-X codeberg.org/snonux/pas2cs/internal.Version=...".
var Version = "0.3.0"
