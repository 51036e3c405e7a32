package wslpath_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/utils/wslpath"
)

func TestToBash(t *testing.T) {
	tests := map[string]struct {
		path    string
		expPath string
	}{
		"Drive letter path should be translated": {
			path:    `C:\Users\lab\kidney\run_all.sh`,
			expPath: "/mnt/c/Users/lab/kidney/run_all.sh",
		},

		"Lowercase drive letter should be kept lowercase": {
			path:    `d:\data\run_all.sh`,
			expPath: "/mnt/d/data/run_all.sh",
		},

		"Forward slashes after the drive should be kept": {
			path:    `E:/pipelines/run_all.sh`,
			expPath: "/mnt/e/pipelines/run_all.sh",
		},

		"Mixed separators should all become slashes": {
			path:    `F:\a/b\c.sh`,
			expPath: "/mnt/f/a/b/c.sh",
		},

		"Bare drive should map to the mount point": {
			path:    `Z:`,
			expPath: "/mnt/z",
		},

		"POSIX path should be unchanged": {
			path:    "/home/lab/run_all.sh",
			expPath: "/home/lab/run_all.sh",
		},

		"Relative path should be unchanged": {
			path:    `scripts\run_all.sh`,
			expPath: `scripts\run_all.sh`,
		},

		"Colon outside the drive position should be unchanged": {
			path:    "/data/scan:01/run_all.sh",
			expPath: "/data/scan:01/run_all.sh",
		},

		"Empty path should be unchanged": {
			path:    "",
			expPath: "",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expPath, wslpath.ToBash(test.path))
		})
	}
}

func TestToBashProperties(t *testing.T) {
	paths := []string{
		`C:\a\b\c.sh`,
		`q:\x`,
		`M:\deep\nested\dir\with spaces\run_all.sh`,
		`A:/already/slashed`,
	}

	for _, p := range paths {
		got := wslpath.ToBash(p)

		assert.True(t, strings.HasPrefix(got, wslpath.MountPrefix+strings.ToLower(p[:1])), p)
		assert.NotContains(t, got, `\`, p)
		assert.NotContains(t, got, p[:2], p)
	}
}

func TestResolve(t *testing.T) {
	tests := map[string]struct {
		platform model.Platform
		path     string
		expPath  string
	}{
		"Windows platform should translate": {
			platform: model.PlatformWindows,
			path:     `C:\kidney\run_all.sh`,
			expPath:  "/mnt/c/kidney/run_all.sh",
		},

		"POSIX platform should never translate": {
			platform: model.PlatformPOSIX,
			path:     `C:\kidney\run_all.sh`,
			expPath:  `C:\kidney\run_all.sh`,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expPath, wslpath.Resolve(test.platform, test.path))
		})
	}
}
