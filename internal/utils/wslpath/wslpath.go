// Package wslpath translates Windows native paths into the form bash sees
// under WSL (`C:\data\run_all.sh` -> `/mnt/c/data/run_all.sh`).
package wslpath

import (
	"strings"

	"github.com/slok/tac2ar/internal/model"
)

// MountPrefix is where WSL mounts the Windows drives.
const MountPrefix = "/mnt/"

// HasDriveLetter returns true when the path starts with a drive letter marker (`X:`).
func HasDriveLetter(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ToBash converts a Windows path into its WSL mount point form. Paths without
// a drive letter marker are returned unchanged.
func ToBash(p string) string {
	if !HasDriveLetter(p) {
		return p
	}

	drive := strings.ToLower(p[:1])
	rest := strings.ReplaceAll(p[2:], `\`, "/")

	return MountPrefix + drive + rest
}

// Resolve returns the path bash should be given on the platform.
func Resolve(platform model.Platform, p string) string {
	if platform == model.PlatformWindows {
		return ToBash(p)
	}
	return p
}
