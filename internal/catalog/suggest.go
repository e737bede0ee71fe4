package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxSuggestDistance is the largest edit distance still offered as a
// suggestion.
const maxSuggestDistance = 2

// SuggestSetCode returns up to limit codes from known within a small edit
// distance of code, closest first. Ties keep the order of known.
func SuggestSetCode(code string, known []string, limit int) []string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || limit <= 0 {
		return nil
	}

	type candidate struct {
		code string
		dist int
	}
	var candidates []candidate
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		k = strings.ToLower(k)
		if seen[k] {
			continue
		}
		seen[k] = true

		d := levenshtein.ComputeDistance(code, k)
		if d <= maxSuggestDistance {
			candidates = append(candidates, candidate{code: k, dist: d})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	out := make([]string, 0, min(limit, len(candidates)))
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.code)
	}
	return out
}
