// Package wordsuggest computes Damerau-Levenshtein edit distance between
// short strings, used to turn a typo'd plugin name into a "did you mean"
// hint in CLI error messages.
package wordsuggest

// Distance returns the Damerau-Levenshtein distance between a and b: the
// minimum number of single-character insertions, deletions,
// substitutions and adjacent transpositions needed to turn a into b.
func Distance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	aLen := len(ar)
	bLen := len(br)

	maxDist := aLen + bLen
	d := make([][]int, aLen+2)
	for i := range d {
		d[i] = make([]int, bLen+2)
	}
	d[0][0] = maxDist
	for i := 0; i <= aLen; i++ {
		d[i+1][0] = maxDist
		d[i+1][1] = i
	}
	for j := 0; j <= bLen; j++ {
		d[0][j+1] = maxDist
		d[1][j+1] = j
	}

	lastRow := make(map[rune]int)
	for i := 1; i <= aLen; i++ {
		lastMatchCol := 0
		for j := 1; j <= bLen; j++ {
			k := lastRow[br[j-1]]
			l := lastMatchCol
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
				lastMatchCol = j
			}
			d[i+1][j+1] = min4(
				d[i][j]+cost,
				d[i+1][j]+1,
				d[i][j+1]+1,
				d[k][l]+(i-k-1)+1+(j-l-1),
			)
		}
		lastRow[ar[i-1]] = i
	}
	return d[aLen+1][bLen+1]
}

func min4(a, b, c, e int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	if e < m {
		m = e
	}
	return m
}

// Closest returns the candidate with the smallest Distance to name, and
// that distance. It reports ok=false if candidates is empty.
func Closest(name string, candidates []string) (closest string, distance int, ok bool) {
	if len(candidates) == 0 {
		return "", 0, false
	}
	best := candidates[0]
	bestDist := Distance(name, best)
	for _, c := range candidates[1:] {
		if dist := Distance(name, c); dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best, bestDist, true
}

// maxSuggestDistance bounds how different a candidate may be from name
// before it stops being a useful "did you mean" suggestion.
const maxSuggestDistance = 3

// Suggest returns a "did you mean %q?" hint for name among candidates,
// or "" if the closest candidate is too far away to be a plausible typo.
func Suggest(name string, candidates []string) string {
	closest, dist, ok := Closest(name, candidates)
	if !ok || dist == 0 || dist > maxSuggestDistance {
		return ""
	}
	return "did you mean \"" + closest + "\"?"
}
