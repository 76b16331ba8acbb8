package store

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// newTestDB creates the schema the gateway and analyzer normally own and
// returns both a writable handle for seeding and a read-only Store.
func newTestDB(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open writable db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conv_id TEXT,
			sender TEXT,
			body TEXT,
			modality TEXT,
			is_group BOOLEAN,
			ts INTEGER,
			deleted BOOLEAN DEFAULT 0
		);`,
		`CREATE TABLE message_analysis (
			message_id INTEGER,
			analyzed_text TEXT,
			is_offensive BOOLEAN,
			offense_type TEXT
		);`,
		`CREATE TABLE chat_registry (
			conv_id TEXT PRIMARY KEY,
			daily_summary BOOLEAN DEFAULT 0
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return db, st
}

type seedMessage struct {
	convID   string
	sender   *string
	body     string
	modality string
	isGroup  bool
	ts       int64
	deleted  bool

	analyzed    *string
	isOffensive bool
	offenseType string
	hasAnalysis bool
}

func seed(t *testing.T, db *sql.DB, msgs []seedMessage) {
	t.Helper()
	for _, m := range msgs {
		modality := m.modality
		if modality == "" {
			modality = "text"
		}
		res, err := db.Exec(`INSERT INTO messages(conv_id, sender, body, modality, is_group, ts, deleted) VALUES(?,?,?,?,?,?,?)`,
			m.convID, m.sender, m.body, modality, m.isGroup, m.ts, m.deleted)
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
		if !m.hasAnalysis {
			continue
		}
		id, _ := res.LastInsertId()
		if _, err := db.Exec(`INSERT INTO message_analysis(message_id, analyzed_text, is_offensive, offense_type) VALUES(?,?,?,?)`,
			id, m.analyzed, m.isOffensive, m.offenseType); err != nil {
			t.Fatalf("seed analysis: %v", err)
		}
	}
}

func strptr(s string) *string { return &s }
