package journal

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory journal, used by the scenario
// harness and tests.
const MemoryPath = ":memory:"

// pragma is one connection setting applied on Open.
type pragma struct {
	name  string
	value string
	// fileOnly pragmas have no effect on an in-memory journal.
	fileOnly bool
}

// pragmas favour a single recording goroutine with readers (trace, replay)
// on other processes: WAL lets them read while a run is being written.
var pragmas = []pragma{
	{name: "journal_mode", value: "WAL", fileOnly: true},
	{name: "synchronous", value: "NORMAL"},
	{name: "busy_timeout", value: "5000"},
	{name: "foreign_keys", value: "ON"},
}

// migration upgrades a journal written by an older binary. Versions are
// recorded in PRAGMA user_version and applied in order, each in its own
// transaction.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "index checkpoint digests",
		// Lets divergent runs be matched against each other by digest.
		stmt: `CREATE INDEX IF NOT EXISTS idx_checkpoints_digest ON checkpoints(digest)`,
	},
}

// schemaVersion is the user_version of a fully migrated journal.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is a SQLite journal of recorded runs: run headers, the inputs
// injected at each tick and a digest checkpoint per committed tick.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path (MemoryPath for an in-memory
// journal), applying pragmas, the schema and pending migrations.
// Opening an existing journal again is a no-op.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: the recorder is the only writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, path == MemoryPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for ad-hoc queries (the CLI and tests).
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB, memory bool) error {
	for _, p := range pragmas {
		if memory && p.fileOnly {
			continue
		}
		stmt := fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > schemaVersion() {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", version, schemaVersion())
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("set user_version %d: %w", m.version, err)
	}
	return tx.Commit()
}

// verifyPragma checks that a pragma reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
