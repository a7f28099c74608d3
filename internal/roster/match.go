package roster

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var (
	// ErrNoStudentMatch means no student carries the label as external id or name.
	ErrNoStudentMatch = errors.New("no student matches")
	// ErrAmbiguousName means several students share the normalized name.
	ErrAmbiguousName = errors.New("name matches several students")
)

// LabelFromPath returns the file name without directory and extension.
func LabelFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MatchStudent resolves a label to a student, first by external id and then by NameKey.
func MatchStudent(ctx context.Context, r database.RosterReader, label string) (*database.Student, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrNoStudentMatch
	}

	student, err := r.GetStudentByExternalID(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("get student by external id: %w", err)
	}
	if student != nil {
		return student, nil
	}

	candidates, err := r.FindStudentsByNameKey(ctx, NameKey(label))
	if err != nil {
		return nil, fmt.Errorf("find students by name: %w", err)
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w %q", ErrNoStudentMatch, label)
	case 1:
		return &candidates[0], nil
	default:
		return nil, fmt.Errorf("%w: %q (%d students)", ErrAmbiguousName, label, len(candidates))
	}
}
