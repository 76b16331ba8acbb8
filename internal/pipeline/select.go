package pipeline

import "sort"

// Candidate is one conversation picked for dispatch.
type Candidate struct {
	Key          string
	MessageCount int
	IsPriority   bool
}

// SelectConversations applies the two-tier selection policy: every priority
// conversation present in the group is always selected, in first-seen order;
// if that yields fewer than minCount entries, the remaining conversations are
// appended by descending message count (stable, ties keep first-seen order)
// until minCount is reached or the pool is exhausted.
func SelectConversations(g *ConversationGroup, priority map[string]struct{}, minCount int) []Candidate {
	var selected []Candidate
	var rest []Candidate
	for _, key := range g.Keys() {
		c := Candidate{Key: key, MessageCount: len(g.Messages(key))}
		if _, ok := priority[key]; ok {
			c.IsPriority = true
			selected = append(selected, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(selected) >= minCount {
		return selected
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].MessageCount > rest[j].MessageCount
	})
	for _, c := range rest {
		if len(selected) >= minCount {
			break
		}
		selected = append(selected, c)
	}
	return selected
}
