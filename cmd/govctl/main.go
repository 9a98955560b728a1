// Command govctl is the CLI entrypoint for the story-driven governance
// core: preflight review, council convening, ADR/journey authoring, secret
// vault management, and config inspection, all against the workspace
// rooted at the current directory unless --workspace overrides it.
package main

import (
	"fmt"
	"os"

	"govctl/internal/obslog"
)

func main() {
	root := newRootCmd()
	root.SilenceErrors = true
	root.SilenceUsage = true

	err := root.Execute()
	if _, isExitCode := err.(exitCodeError); err != nil && !isExitCode {
		fmt.Fprintln(os.Stderr, "govctl:", err)
	}
	code := exitCode(err)
	obslog.CloseAll()
	os.Exit(code)
}
