package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daios-rlm/pyrepl/internal/config"
	"github.com/daios-rlm/pyrepl/internal/session"
)

var (
	runStateDB    string
	runSessionID  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read one Execute record from stdin and write one response record to stdout",
	Long: `run implements the CLI framing contract of §6: it reads exactly one JSON
Execute record from standard input, constructs a Session seeded with the
record's context/query/state, executes the record's code exactly once, and
writes exactly one JSON response record to standard output.

Exit code 0 covers transport success, including a response with "ok": false
for a user-code error — that is a normal outcome, not a process failure.
Exit code 2 means the input itself could not be framed as a valid Execute
record, or that a host-side step failed: loading the config file, opening
or saving the state db, or encoding the response.

When --state-db and --session-id are both given, run resolves prior state
from that sqlite-backed store by session ID instead of requiring the caller
to thread the full "state" token through every Execute record, and persists
the post-call snapshot back under the same ID.`,
	RunE: runExecute,
}

func init() {
	runCmd.Flags().StringVar(&runStateDB, "state-db", "", "path to a sqlite database used to resolve/persist session state by --session-id")
	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "session identifier to load prior state from and save state back to in --state-db")
}

func runExecute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pyrepl: failed to load config %q: %v\n", configPath, err)
		os.Exit(2)
	}

	var in session.ExecuteInput
	dec := json.NewDecoder(cmd.InOrStdin())
	if err := dec.Decode(&in); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pyrepl: malformed Execute record: %v\n", err)
		os.Exit(2)
	}

	var store *session.Store
	if runStateDB != "" && runSessionID != "" {
		store, err = session.OpenStore(runStateDB)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "pyrepl: failed to open state db %q: %v\n", runStateDB, err)
			os.Exit(2)
		}
		defer store.Close()
		if in.State == nil {
			if snap, lerr := store.Load(runSessionID); lerr == nil {
				in.State = &snap
			}
		}
	}

	sess := session.New(in.Context, in.Query, cfg.Limits())
	out := sess.Execute(in)

	if store != nil {
		if serr := store.Save(runSessionID, out.State); serr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "pyrepl: failed to persist session state: %v\n", serr)
			os.Exit(2)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "pyrepl: failed to encode response: %v\n", err)
		os.Exit(2)
	}
	return nil
}
