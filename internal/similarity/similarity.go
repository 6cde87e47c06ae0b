// Package similarity compares domains by edit distance to spot look-alikes of
// official brand domains.
package similarity

import (
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// DefaultCloseness is the largest edit distance still treated as a near miss.
const DefaultCloseness = 2

// Match classifies a candidate domain against a set of official domains.
type Match int

const (
	// Unrelated means no official domain is within the closeness threshold.
	Unrelated Match = iota
	// Lookalike means an official domain is within the threshold but not equal.
	Lookalike
	// Exact means the candidate is one of the official domains.
	Exact
)

func (m Match) String() string {
	switch m {
	case Exact:
		return "exact"
	case Lookalike:
		return "lookalike"
	default:
		return "unrelated"
	}
}

// EditDistance is the Levenshtein distance between a and b counted in code points.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	return fuzzy.LevenshteinDistance(a, b)
}

// Classify compares candidate against each official domain and returns the
// closest relation found along with the official domain that produced it.
func Classify(candidate string, official []string, closeness int) (Match, string) {
	best := Unrelated
	bestDomain := ""
	for _, d := range official {
		if d == candidate {
			return Exact, d
		}
		if best == Unrelated && EditDistance(d, candidate) <= closeness {
			best = Lookalike
			bestDomain = d
		}
	}
	return best, bestDomain
}
