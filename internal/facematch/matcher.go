package facematch

import "math"

// LinearMatcher scans every candidate. O(N) per call, exact.
type LinearMatcher struct{}

// FindBestMatch returns the most similar candidate. Strict comparison keeps the
// first candidate among equal maxima, so results are stable for a given pool order.
func (LinearMatcher) FindBestMatch(target Embedding, pool []Candidate, threshold float64) MatchResult {
	if len(pool) == 0 {
		return MatchResult{}
	}

	t := newVector(target)
	bestIdx := -1
	best := math.Inf(-1)
	for i := range pool {
		s := t.cosine(newVector(pool[i].Embedding))
		if s > best {
			best = s
			bestIdx = i
		}
	}

	return resultFor(pool[bestIdx], best, threshold)
}

func resultFor(c Candidate, similarity, threshold float64) MatchResult {
	return MatchResult{
		StudentID:  c.StudentID,
		ClassID:    c.ClassID,
		Similarity: similarity,
		Found:      true,
		Matched:    similarity >= threshold,
	}
}

// ExcludeStudent returns the pool without the given student, preserving order.
func ExcludeStudent(pool []Candidate, studentID int64) []Candidate {
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.StudentID != studentID {
			out = append(out, c)
		}
	}
	return out
}
