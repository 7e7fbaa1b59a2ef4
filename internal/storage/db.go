package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"quxat/internal"
)

// DB is the audit store: one row per integration run plus the per-source
// record counts that fed it. It never participates in the merge itself.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  command TEXT NOT NULL,
  statsJson TEXT NOT NULL,
  durationMs REAL NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS source_log (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  source TEXT NOT NULL,
  records INTEGER NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
`
	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(traceID, command string, stats internal.RunStats, durationMs float64) (int64, error) {
	statsJSON, _ := json.Marshal(stats)
	result, err := d.conn.Exec(
		`INSERT INTO runs (traceId, command, statsJson, durationMs) VALUES (?, ?, ?, ?)`,
		traceID, command, string(statsJSON), durationMs,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertSourceCounts(runID int64, counts []internal.SourceCount) error {
	for _, c := range counts {
		if _, err := d.conn.Exec(
			`INSERT INTO source_log (runId, source, records) VALUES (?, ?, ?)`,
			runID, c.Source, c.Records,
		); err != nil {
			return err
		}
	}
	return nil
}

type RunRow struct {
	ID         int
	TraceID    string
	Command    string
	Stats      internal.RunStats
	DurationMs float64
	CreatedAt  string
}

func (d *DB) ListRuns(limit int) ([]RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, command, statsJson, durationMs, createdAt
FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var row RunRow
		var statsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.Command, &statsJSON, &row.DurationMs, &row.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(statsJSON), &row.Stats)
		out = append(out, row)
	}
	return out, rows.Err()
}
