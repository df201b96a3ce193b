// Package similarity provides structural and lexical comparison primitives
// over two text blobs. Both scores are normalized to [0, 1] where 1 means
// identical.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Structural computes an edit-distance-derived closeness between two
// strings after normalization. Both empty -> 1, exactly one empty -> 0.
func Structural(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	if na == "" && nb == "" {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	ra := []rune(na)
	rb := []rune(nb)
	dist := levenshtein(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// Lexical computes a word-overlap score combining the Jaccard index over
// token sets with cosine similarity over term-frequency vectors, weighted
// 0.4/0.6. It is a cost-free proxy for semantic similarity.
func Lexical(a, b string) float64 {
	ta := Tokenize(a)
	tb := Tokenize(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}

	fa := termFrequencies(ta)
	fb := termFrequencies(tb)

	return 0.4*jaccard(fa, fb) + 0.6*cosine(fa, fb)
}

// Normalize lowercases, strips punctuation, and collapses whitespace.
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Tokenize splits normalized text into words longer than two characters.
func Tokenize(s string) []string {
	fields := strings.Fields(Normalize(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func termFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	return freq
}

func jaccard(a, b map[string]int) float64 {
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func cosine(a, b map[string]int) float64 {
	var dot, magA, magB float64
	for t, ca := range a {
		magA += float64(ca * ca)
		if cb, ok := b[t]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range b {
		magB += float64(cb * cb)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// levenshtein computes edit distance with a two-row rolling buffer.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
