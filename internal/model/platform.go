package model

import "fmt"

// Platform is the host family used to decide how configured paths are resolved.
type Platform string

const (
	// PlatformWindows hosts keep native paths that must be translated for bash (WSL).
	PlatformWindows Platform = "windows"
	// PlatformPOSIX hosts (Linux, macOS) use paths as they are.
	PlatformPOSIX Platform = "posix"
)

// PlatformFromGOOS maps a Go OS name to its platform.
func PlatformFromGOOS(goos string) Platform {
	if goos == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// Validate checks the platform is a known one.
func (p Platform) Validate() error {
	switch p {
	case PlatformWindows, PlatformPOSIX:
		return nil
	}
	return fmt.Errorf("unknown platform %q: %w", p, ErrNotValid)
}
