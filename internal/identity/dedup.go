package identity

import "applypilot-engine/internal/domain"

// Dedup filters candidates whose identity is already known to the ledger.
// The filter is stable: surviving candidates keep their discovery order,
// because the batch summary presents a ranked list to a human. Two
// candidates resolving to the same identity within one batch collapse to
// the first occurrence. known is a read-only snapshot and is never mutated.
func Dedup(candidates []domain.Posting, known map[string]struct{}) []domain.Posting {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]domain.Posting, 0, len(candidates))

	for _, c := range candidates {
		id := c.Identity
		if id == "" {
			id = Canonical(c.Link)
		}
		if _, ok := known[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c.Identity = id
		out = append(out, c)
	}
	return out
}
