package convkey

import "strings"

// Unknown is the key assigned to rows with an absent conversation id.
const Unknown = "unknown"

// Normalize maps a raw, possibly composite conversation id to the canonical
// grouping key. It is pure and total: every raw id maps to exactly one key.
//
// Composite ids of the form direct_<agent>_<jid> collapse to the embedded
// @g.us/@c.us jid, and group_<id>_* collapses to <id>. Anything else is
// returned unchanged, including direct_/group_ ids missing the expected
// substructure. That fallback can under-merge conversations that differ only
// in prefix; it is kept as-is on purpose.
func Normalize(raw string) string {
	if raw == "" {
		return Unknown
	}
	switch {
	case strings.HasPrefix(raw, "direct_"):
		parts := strings.Split(raw, "_")
		for _, part := range parts[1:] {
			if strings.Contains(part, "@g.us") || strings.Contains(part, "@c.us") {
				return part
			}
		}
	case strings.HasPrefix(raw, "group_"):
		parts := strings.Split(raw, "_")
		if len(parts) > 1 && parts[1] != "" {
			return parts[1]
		}
	}
	return raw
}
