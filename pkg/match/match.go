// Package match decides whether two differently-worded titles refer to the
// same assignment.
package match

import "github.com/duesync/duesync/pkg/normalize"

const (
	// SameRecordThreshold classifies a candidate as a duplicate of an
	// existing record.
	SameRecordThreshold = 0.85
	// UpdateThreshold is the stricter bar for treating a due-date change on
	// a near-identical title as an edit rather than a new assignment.
	UpdateThreshold = 0.90
)

// Similar reports whether a and b name the same assignment at the given
// threshold. Both inputs are normalized first; equality after normalization
// is an immediate match. Titles too short to produce a bigram are degenerate
// and match only when both inputs are literally empty.
func Similar(a, b string, threshold float64) bool {
	na, nb := normalize.Title(a), normalize.Title(b)
	if len([]rune(na)) < 2 || len([]rune(nb)) < 2 {
		return a == "" && b == ""
	}
	if na == nb {
		return true
	}
	return coefficient(na, nb) >= threshold
}

// Similarity returns the bigram overlap coefficient of the two normalized
// titles, in [0,1]. Degenerate titles score 0.
func Similarity(a, b string) float64 {
	na, nb := normalize.Title(a), normalize.Title(b)
	if len([]rune(na)) < 2 || len([]rune(nb)) < 2 {
		return 0
	}
	if na == nb {
		return 1
	}
	return coefficient(na, nb)
}

// coefficient is the Sørensen–Dice overlap of the character bigram sets:
// 2|A∩B| / (|A|+|B|). Titles too short to produce a bigram never match.
func coefficient(a, b string) float64 {
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	shared := 0
	for g := range ba {
		if bb[g] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ba)+len(bb))
}

func bigrams(s string) map[string]bool {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	set := make(map[string]bool, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}
