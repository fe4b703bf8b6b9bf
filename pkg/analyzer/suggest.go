package analyzer

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for a suggestion.
const suggestThreshold = 0.75

// Suggest returns up to limit candidates that look like target, best
// first. Case is ignored when scoring.
func Suggest(target string, candidates []string, limit int) []string {
	if target == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		name  string
		score float32
	}
	lower := strings.ToLower(target)
	seen := make(map[string]bool, len(candidates))
	var hits []scored
	for _, c := range candidates {
		if c == target || seen[c] {
			continue
		}
		seen[c] = true
		score, err := edlib.StringsSimilarity(lower, strings.ToLower(c), edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			continue
		}
		hits = append(hits, scored{name: c, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}
