package IO

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteMetrics stores the metric stream in a SQLite file. Every process gets
// its own run id so several runs can share one database.
type SQLiteMetrics struct {
	db    *sql.DB
	runID string
}

func NewSQLiteMetrics(path string) (*SQLiteMetrics, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open metrics db")
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metrics(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts REAL NOT NULL,
			epoch INTEGER NOT NULL,
			name TEXT NOT NULL,
			value REAL NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create metrics table")
	}
	return &SQLiteMetrics{db: db, runID: uuid.New().String()}, nil
}

func (m *SQLiteMetrics) RunID() string { return m.runID }

func (m *SQLiteMetrics) Record(epoch int, name string, value float64) error {
	_, err := m.db.Exec("INSERT INTO metrics(run_id, ts, epoch, name, value) VALUES(?,?,?,?,?)",
		m.runID, float64(time.Now().UnixMilli())/1000.0, epoch, name, value)
	return errors.Wrap(err, "insert metric")
}

// Series returns the values of one metric for this run ordered by epoch.
func (m *SQLiteMetrics) Series(name string) ([]float64, error) {
	rows, err := m.db.Query("SELECT value FROM metrics WHERE run_id = ? AND name = ? ORDER BY epoch ASC", m.runID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (m *SQLiteMetrics) Close() error { return m.db.Close() }
