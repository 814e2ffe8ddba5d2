// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"strings"
	"unicode"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// TitleSimilarity compares two titles after normalization. It takes the
// larger of the token-set Dice coefficient and the edit-distance ratio so
// that both reordered words and small typos score well. Empty titles score 0.
func TitleSimilarity(a, b string) float64 {
	na, nb := types.NormalizeTitle(a), types.NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return max(dice(strings.Fields(na), strings.Fields(nb)), levenshteinRatio(na, nb))
}

func dice(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	shared := 0
	for t := range setA {
		if setB[t] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func levenshteinRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return 1 - float64(prev[len(rb)])/float64(longest)
}

// AuthorOverlap measures how well the query authors are covered by the
// candidate authors. Each query author is paired with its most similar
// unused candidate author and the pair scores are averaged over the query
// list, so a candidate listing extra co-authors is not penalised.
// Returns 0 if either list is empty.
func AuthorOverlap(query, cand []string) float64 {
	if len(query) == 0 || len(cand) == 0 {
		return 0
	}
	normQ := normalizeAll(query)
	normC := normalizeAll(cand)

	used := make([]bool, len(normC))
	total := 0.0
	for _, a := range normQ {
		best, bestIdx := 0.0, -1
		for j, b := range normC {
			if used[j] {
				continue
			}
			if s := nameSimilarity(a, b); s > best {
				best, bestIdx = s, j
			}
		}
		if bestIdx >= 0 {
			used[bestIdx] = true
			total += best
		}
	}
	return total / float64(len(normQ))
}

// name is an author name split into surname and given-name tokens.
type name struct {
	last  string
	given []string
}

func isNameSep(r rune) bool {
	return r == ',' || r == '.' || r == '-' || unicode.IsSpace(r)
}

// parseName splits an author string into surname and given-name tokens.
// It accepts "Last, First", "First Last", "F. Last", and "Last FM".
func parseName(s string) name {
	last := types.Surname(s)
	if last == "" {
		return name{}
	}
	var given []string
	for _, tok := range strings.FieldsFunc(types.FoldASCII(s), isNameSep) {
		l := strings.ToLower(onlyLetters(tok))
		if l == "" || l == last {
			continue
		}
		if len(l) > 1 && len(l) <= 3 && tok == strings.ToUpper(tok) {
			// Packed initials such as "Aizawa AK".
			for _, r := range l {
				given = append(given, string(r))
			}
			continue
		}
		given = append(given, l)
	}
	return name{last: last, given: given}
}

func onlyLetters(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeAll(names []string) []name {
	out := make([]name, 0, len(names))
	for _, n := range names {
		if p := parseName(n); p.last != "" {
			out = append(out, p)
		}
	}
	return out
}

// nameSimilarity compares two parsed names:
//
//   - different surnames: 0
//   - same surname, either side without given names: 0.85
//   - same surname and first given name: 1.0
//   - same surname, initials agree: 0.9
//   - same surname, different given names: 0.3
func nameSimilarity(a, b name) float64 {
	if a.last == "" || a.last != b.last {
		return 0
	}
	if len(a.given) == 0 || len(b.given) == 0 {
		return 0.85
	}
	fa, fb := a.given[0], b.given[0]
	if fa == fb {
		return 1
	}
	if (len(fa) == 1 || len(fb) == 1) && fa[0] == fb[0] {
		return 0.9
	}
	return 0.3
}
