package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pyrepl",
	Short: "Sandboxed string-REPL interpreter for Recursive-Language-Model orchestrators",
	Long: `pyrepl executes untrusted code fragments against a persistent, resource-bounded
evaluator for a Python-compatible subset, on behalf of an RLM control loop that
repeatedly feeds a long document (context) and a task prompt (query) to a
language model and runs the fragments the model emits.`,
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML file overriding the default resource limits")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
}
