package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/daios-rlm/pyrepl/internal/config"
	"github.com/daios-rlm/pyrepl/internal/session"
	"github.com/daios-rlm/pyrepl/internal/util"
)

var (
	replContext string
	replQuery   string
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive line-at-a-time session over the same Session state (development only)",
	Long: `repl is a human-facing convenience wrapper, not part of the Execute
contract: it keeps one Session alive across lines typed at the prompt, the
way a person testing fragments before wiring up an RLM loop would want,
mirroring the persistent-environment behavior an orchestrator relies on.`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().StringVar(&replContext, "context", "", "the long-document text bound to the `context` name")
	replCmd.Flags().StringVar(&replQuery, "query", "", "the task prompt bound to the `query` name")
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("pyrepl: failed to load config %q: %w", configPath, err)
	}

	sess := session.New(replContext, replQuery, cfg.Limits())
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	fmt.Fprintln(out, dimStyle.Render("pyrepl interactive session — Ctrl-D to exit"))
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render(">>> "))
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		result := sess.Execute(session.ExecuteInput{Code: line})
		if result.Error != nil {
			fmt.Fprintln(out, errorStyle.Render(result.Error.Message))
			if result.Error.Line != nil && result.Error.Column != nil {
				fmt.Fprint(out, dimStyle.Render(util.GetContextLines(line, *result.Error.Line, *result.Error.Column)))
			}
			continue
		}
		if result.Output != "" {
			fmt.Fprintln(out, outputStyle.Render(result.Output))
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return err
	}
	fmt.Fprintln(out)
	return nil
}
