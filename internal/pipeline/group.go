package pipeline

import (
	"chat_dispatch/internal/convkey"
	"chat_dispatch/internal/redact"
	"chat_dispatch/internal/store"
)

// RedactedMessage is a message row after redaction, with ts normalized to
// epoch seconds.
type RedactedMessage struct {
	Text        string
	IsOffensive bool
	OffenseType string
	Modality    string
	IsGroup     bool
	Sender      *string
	Ts          int64
}

// ConversationGroup maps canonical conversation keys to their day's messages.
// Key order is first-seen order from the query result; message order within a
// key follows input order (the query sorts by conv_id, then ts).
type ConversationGroup struct {
	keys []string
	msgs map[string][]RedactedMessage
}

func (g *ConversationGroup) Keys() []string { return g.keys }

func (g *ConversationGroup) Messages(key string) []RedactedMessage { return g.msgs[key] }

func (g *ConversationGroup) Len() int { return len(g.keys) }

// Timestamps above this are taken to be milliseconds.
const msThreshold = int64(1_000_000_000_000)

// NormalizeTs coerces a second-or-millisecond epoch value to seconds.
func NormalizeTs(ts int64) int64 {
	if ts > msThreshold {
		return ts / 1000
	}
	return ts
}

// GroupRows folds the flat query result into per-conversation sequences,
// redacting message text along the way. When normalizeIDs is false the raw
// conv_id is used as the key directly (empty ids still map to "unknown").
func GroupRows(rows []store.MessageRow, normalizeIDs bool) *ConversationGroup {
	g := &ConversationGroup{msgs: make(map[string][]RedactedMessage)}
	for _, row := range rows {
		key := row.ConvID
		if normalizeIDs {
			key = convkey.Normalize(row.ConvID)
		} else if key == "" {
			key = convkey.Unknown
		}
		if _, seen := g.msgs[key]; !seen {
			g.keys = append(g.keys, key)
		}
		g.msgs[key] = append(g.msgs[key], RedactedMessage{
			Text:        redact.Redact(row.MessageText),
			IsOffensive: row.IsOffensive,
			OffenseType: row.OffenseType,
			Modality:    row.Modality,
			IsGroup:     row.IsGroup,
			Sender:      row.Sender,
			Ts:          NormalizeTs(row.Ts),
		})
	}
	return g
}
