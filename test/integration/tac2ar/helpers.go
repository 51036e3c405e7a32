package tac2ar

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/slok/tac2ar/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary  string
	Blender string
	Python  string
}

func (c *Config) defaults() error {
	// go test changes the CWD to the test package directory, so relative paths
	// would point to the wrong place.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("TAC2AR_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("tac2ar binary not found at %q: %w", c.Binary, err)
	}

	if c.Blender == "" {
		return fmt.Errorf("blender executable is required (TAC2AR_INTEGRATION_BLENDER)")
	}
	if _, err := os.Stat(c.Blender); err != nil {
		return fmt.Errorf("blender not found at %q: %w", c.Blender, err)
	}

	if c.Python == "" {
		p, err := exec.LookPath("python3")
		if err != nil {
			return fmt.Errorf("python3 not found in PATH (TAC2AR_INTEGRATION_PYTHON): %w", err)
		}
		c.Python = p
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "TAC2AR_INTEGRATION"
		envBinary     = "TAC2AR_INTEGRATION_BINARY"
		envBlender    = "TAC2AR_INTEGRATION_BLENDER"
		envPython     = "TAC2AR_INTEGRATION_PYTHON"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:  os.Getenv(envBinary),
		Blender: os.Getenv(envBlender),
		Python:  os.Getenv(envPython),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RunCmd runs a tac2ar command with the given arguments against a config file
// and history database. It suppresses logging output for cleaner test output.
func RunCmd(ctx context.Context, config Config, configPath, dbPath string, args ...string) (stdout, stderr []byte, err error) {
	all := append([]string{"--config", configPath, "--db-path", dbPath}, args...)
	return testutils.RunTac2ar(ctx, nil, config.Binary, all, "", true)
}
