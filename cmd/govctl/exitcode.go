package main

import "govctl/internal/preflight"

// exitCodeError lets a RunE communicate a specific process exit code
// (preflight's 0/1/2/3 contract) back to main without calling os.Exit
// from inside a subcommand, so obslog.CloseAll still runs on every path.
type exitCodeError preflight.ExitCode

func (e exitCodeError) Error() string { return "" }

// exitCode extracts the process exit code for err, defaulting to 1 for
// any ordinary (non-exitCodeError) failure and 0 for no error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCodeError); ok {
		return int(ec)
	}
	return 1
}
