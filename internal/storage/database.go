package storage

import (
	"database/sql"
	"path/filepath"
	"time"

	"fastproxy/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

func InitDatabase(storage *AppStorage) (*Database, error) {
	dbPath := filepath.Join(storage.DBPath(), "fastproxy.db")

	dbDir := filepath.Dir(dbPath)
	if err := storage.EnsureDirPermissions(dbDir); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS session_events (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            event TEXT NOT NULL,
            protocol TEXT NOT NULL,
            host TEXT NOT NULL,
            port INTEGER NOT NULL,
            username TEXT,
            resolved_addr TEXT,
            detail TEXT,
            created_at TIMESTAMP NOT NULL
        )
    `)
	return err
}

// RecordEvent appends one event to the connection history. Events carry
// usernames, never passwords, so the table stays in the clear.
func (db *Database) RecordEvent(event models.SessionEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	stmt, err := db.db.Prepare(`
        INSERT INTO session_events (
            event, protocol, host, port, username, resolved_addr, detail, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		event.Event, event.Protocol.String(), event.Host, event.Port,
		event.Username, event.ResolvedAddr, event.Detail, event.CreatedAt,
	)
	return err
}

func (db *Database) RecentEvents(limit int) ([]models.SessionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.db.Query(`
        SELECT id, event, protocol, host, port, username, resolved_addr, detail, created_at
        FROM session_events
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SessionEvent
	for rows.Next() {
		var e models.SessionEvent
		var protocol string
		var username, resolvedAddr, detail sql.NullString

		err := rows.Scan(
			&e.ID, &e.Event, &protocol, &e.Host, &e.Port,
			&username, &resolvedAddr, &detail, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if p, perr := models.ParseProtocol(protocol); perr == nil {
			e.Protocol = p
		}
		e.Username = username.String
		e.ResolvedAddr = resolvedAddr.String
		e.Detail = detail.String
		events = append(events, e)
	}

	return events, rows.Err()
}

// PruneBefore drops events older than the cutoff and reports how many
// went away.
func (db *Database) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := db.db.Exec("DELETE FROM session_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *Database) Close() error {
	return db.db.Close()
}
