package model

// Command describes an external process invocation.
type Command struct {
	// Path is the executable, looked up in PATH when it has no separator.
	Path string
	// Args are the arguments passed to the executable.
	Args []string
	// Env contains additional environment variables on top of the current process ones.
	Env map[string]string
}

// ProcessResult is the outcome of a process that ran to completion.
type ProcessResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Succeeded returns true when the process exited with status 0.
func (r ProcessResult) Succeeded() bool { return r.ExitCode == 0 }
