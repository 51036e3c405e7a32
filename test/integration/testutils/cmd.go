package testutils

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// RunTac2ar executes a tac2ar binary with pre-split arguments, feeding stdin
// to the process.
func RunTac2ar(ctx context.Context, env []string, binary string, args []string, stdin string, nolog bool) (stdout, stderr []byte, err error) {
	var outData, errData bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &outData
	cmd.Stderr = &errData
	cmd.Stdin = bytes.NewBufferString(stdin)

	// Set env: os.Environ() first, then custom env overrides on top.
	// In Go's exec.Cmd, when duplicate keys exist, the last one wins.
	newEnv := append([]string{}, os.Environ()...)
	newEnv = append(newEnv, env...)
	if nolog {
		newEnv = append(newEnv, "TAC2AR_NO_LOG=true")
	}
	cmd.Env = newEnv

	err = cmd.Run()

	return outData.Bytes(), errData.Bytes(), err
}
