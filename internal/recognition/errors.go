package recognition

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var (
	// ErrNoEnrolledFaces is returned when the candidate pool is empty.
	ErrNoEnrolledFaces = errors.New("no enrolled faces")

	// ErrNoMatch is matched by *NoMatchError.
	ErrNoMatch = errors.New("face not recognized")

	// ErrInvalidThreshold is returned for a per-call threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1]")

	// ErrStudentNotFound is returned when the student does not exist.
	ErrStudentNotFound = database.ErrStudentNotFound

	// ErrClassNotFound is returned when a pinned class does not exist.
	ErrClassNotFound = database.ErrClassNotFound
)

// NoMatchError reports the best similarity seen when no candidate reached the threshold.
type NoMatchError struct {
	BestSimilarity float64
	Threshold      float64
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s: best similarity %.4f below threshold %.2f", ErrNoMatch, e.BestSimilarity, e.Threshold)
}

func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}
