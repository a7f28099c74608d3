// Package facematch compares face embeddings: cosine similarity, best-match
// selection over a candidate pool and the duplicate-face enrollment guard.
// Everything here is pure in-memory computation; callers own I/O.
package facematch

// Embedding is a fixed-length face descriptor produced by the detection model.
type Embedding []float32

// Candidate is one enrolled identity eligible for matching.
type Candidate struct {
	StudentID int64
	ClassID   *int64 // home class, nil when the student is unassigned
	Embedding Embedding
}

// MatchResult is the outcome of a best-match search.
// Found is false only for an empty pool; Matched additionally requires
// Similarity >= threshold.
type MatchResult struct {
	StudentID  int64
	ClassID    *int64
	Similarity float64
	Found      bool
	Matched    bool
}

// Matcher finds the best candidate for a target embedding.
// Implementations must return the first candidate (in pool order) among equal maxima.
type Matcher interface {
	FindBestMatch(target Embedding, pool []Candidate, threshold float64) MatchResult
}
