package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"chat_dispatch/internal/timewin"
)

// Store wraps read-only SQLite access to the chat database. The database is
// written by the messaging gateway and the moderation analyzer; this pipeline
// only reads it.
type Store struct {
	db *sql.DB
}

// Open opens the chat database read-only.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// MessageRow is one joined record of a message and its optional prior
// moderation analysis. Ts is unit-ambiguous (seconds or milliseconds);
// normalization happens in the pipeline, not here.
type MessageRow struct {
	ConvID      string
	MessageText string
	IsOffensive bool
	OffenseType string
	Modality    string
	IsGroup     bool
	Sender      *string
	Ts          int64
}

// MessagesForWindow returns the day's non-deleted messages joined with their
// analysis, ordered by conv_id then ts ascending. Rows qualify when their
// timestamp falls inside either the second or the millisecond window bounds.
func (s *Store) MessagesForWindow(ctx context.Context, w timewin.Window) ([]MessageRow, error) {
	query := `SELECT m.conv_id,
       COALESCE(a.analyzed_text, m.body, '') AS message_text,
       a.is_offensive,
       a.offense_type,
       COALESCE(m.modality, 'text') AS modality,
       m.is_group,
       m.sender,
       m.ts
FROM messages m
LEFT JOIN message_analysis a ON a.message_id = m.id
WHERE COALESCE(m.deleted, 0) = 0
  AND ((m.ts BETWEEN ? AND ?) OR (m.ts BETWEEN ? AND ?))
ORDER BY m.conv_id ASC, m.ts ASC`

	rows, err := s.db.QueryContext(ctx, query, w.StartSec, w.EndSec, w.StartMs, w.EndMs)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var rec MessageRow
		var convID, offenseType, sender sql.NullString
		var isOffensive, isGroup sql.NullBool
		if err := rows.Scan(&convID, &rec.MessageText, &isOffensive, &offenseType, &rec.Modality, &isGroup, &sender, &rec.Ts); err != nil {
			return nil, err
		}
		rec.ConvID = convID.String
		rec.IsOffensive = isOffensive.Bool
		rec.OffenseType = offenseType.String
		rec.IsGroup = isGroup.Bool
		if sender.Valid {
			v := sender.String
			rec.Sender = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PriorityConversations returns the ids flagged in the chat registry for
// mandatory daily summarization.
func (s *Store) PriorityConversations(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conv_id FROM chat_registry WHERE daily_summary = 1`)
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}
