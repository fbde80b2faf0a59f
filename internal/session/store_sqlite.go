package session

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/daios-rlm/pyrepl/internal/modules"
	"github.com/daios-rlm/pyrepl/internal/object"
)

// Store persists Snapshots across process invocations, letting the
// CLI framing binary's `run` subcommand resume a session by ID
// between calls rather than requiring one long-lived process. This is
// an additive CLI convenience (§4.5), never required by the Execute
// contract itself, which only needs the opaque token to round-trip
// in-memory within a single process.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) a sqlite database at path,
// the teacher's own internal/svc/sqlite connection pattern stripped
// of its actor-message plumbing and repurposed for one table.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	const schema = `CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		total_steps INTEGER NOT NULL,
		total_executes INTEGER NOT NULL,
		bindings TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (st *Store) Close() error { return st.db.Close() }

// Save writes snap under the caller-chosen key id, overwriting any
// prior row with the same id. id is an opaque correlation key (the
// CLI's --session-id flag, typically) independent of snap.ID, which
// remains the Session's own identity token carried in the snapshot
// itself. Only JSON-representable bindings survive the round trip:
// encodeBindings skips any binding modules.EncodeValue cannot encode.
func (st *Store) Save(id string, snap Snapshot) error {
	encoded, err := encodeBindings(snap.Bindings)
	if err != nil {
		return err
	}
	_, err = st.db.Exec(
		`INSERT INTO snapshots (id, total_steps, total_executes, bindings)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET total_steps=excluded.total_steps,
		   total_executes=excluded.total_executes, bindings=excluded.bindings`,
		id, snap.Metrics.TotalSteps, snap.Metrics.TotalExecutes, encoded,
	)
	return err
}

// Load reads back the snapshot stored under id, or returns an error
// if no such snapshot exists.
func (st *Store) Load(id string) (Snapshot, error) {
	var (
		totalSteps, totalExecutes int
		encoded                   string
	)
	row := st.db.QueryRow(`SELECT total_steps, total_executes, bindings FROM snapshots WHERE id = ?`, id)
	if err := row.Scan(&totalSteps, &totalExecutes, &encoded); err != nil {
		return Snapshot{}, fmt.Errorf("no snapshot for id %q: %w", id, err)
	}
	bindings, err := decodeBindings(encoded)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{ID: uuid.New(), Bindings: bindings, Metrics: Metrics{TotalSteps: totalSteps, TotalExecutes: totalExecutes}}
	return snap, nil
}

// encodeBindings renders every binding as a single JSON object,
// {"name": <json value>, ...}, using the same encoder the json module
// exposes to user code.
func encodeBindings(bindings []Binding) (string, error) {
	pairs := make(map[string]string, len(bindings))
	order := make([]string, 0, len(bindings))
	for _, b := range bindings {
		v, err := modules.EncodeValue(b.Value)
		if err != nil {
			continue // skip values the json encoder cannot represent
		}
		pairs[b.Name] = v
		order = append(order, b.Name)
	}
	out := "{"
	for i, name := range order {
		if i != 0 {
			out += ","
		}
		out += fmt.Sprintf("%q:%s", name, pairs[name])
	}
	out += "}"
	return out, nil
}

func decodeBindings(encoded string) ([]Binding, error) {
	v, err := modules.DecodeValue(encoded)
	if err != nil {
		return nil, err
	}
	dict, ok := v.(*object.Dict)
	if !ok {
		return nil, fmt.Errorf("corrupt snapshot bindings")
	}
	bindings := make([]Binding, 0, dict.Len())
	for _, k := range dict.Keys() {
		val, _ := dict.Get(k)
		name, ok := object.DictKeyToValue(k).(*object.String)
		if !ok {
			return nil, fmt.Errorf("corrupt snapshot bindings")
		}
		bindings = append(bindings, Binding{Name: name.Value, Value: val})
	}
	return bindings, nil
}
