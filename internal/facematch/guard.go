package facematch

import (
	"errors"
	"fmt"
)

// ErrDuplicateFace is returned (wrapped in *DuplicateFaceError) when an enrollment
// embedding already matches a different student.
var ErrDuplicateFace = errors.New("face already enrolled for another student")

// DuplicateFaceError names the colliding student so a human can resolve the conflict.
type DuplicateFaceError struct {
	StudentID  int64
	Similarity float64
}

func (e *DuplicateFaceError) Error() string {
	return fmt.Sprintf("face already enrolled for student %d (similarity %.4f)", e.StudentID, e.Similarity)
}

func (e *DuplicateFaceError) Is(target error) bool {
	return target == ErrDuplicateFace
}

// Guard refuses enrollment of a face that already belongs to someone else.
type Guard struct {
	Matcher Matcher
}

// Check runs the matcher against every candidate except enrollingID.
// The enrolling student's own embedding is skipped so re-enrollment overwrites it.
func (g Guard) Check(target Embedding, pool []Candidate, enrollingID int64, threshold float64) error {
	m := g.Matcher
	if m == nil {
		m = LinearMatcher{}
	}

	res := m.FindBestMatch(target, ExcludeStudent(pool, enrollingID), threshold)
	if res.Matched {
		return &DuplicateFaceError{StudentID: res.StudentID, Similarity: res.Similarity}
	}
	return nil
}
