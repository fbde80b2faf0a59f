// Command pyrepl is the thin CLI framing binary described in §6: it
// reads exactly one JSON Execute record from standard input, runs it
// through a fresh Session, and writes exactly one JSON response
// record to standard output. A separate `repl` subcommand offers an
// interactive, human-facing loop over the same Session for local
// development; it is not part of the Execute contract.
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
