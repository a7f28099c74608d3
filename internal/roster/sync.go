package roster

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// SourceClass is a class as exported by the school information system.
type SourceClass struct {
	ExternalID string
	Name       string
}

// SourceStudent is a student as exported by the school information system.
type SourceStudent struct {
	ExternalID      string
	FullName        string
	ClassExternalID string // empty when the student has no class
}

// Source reads the roster from the school information system.
type Source interface {
	ListClasses(ctx context.Context) ([]SourceClass, error)
	ListStudents(ctx context.Context) ([]SourceStudent, error)
}

// SyncResult summarizes one sync run.
type SyncResult struct {
	Classes    int `json:"classes"`
	Students   int `json:"students"`
	Unassigned int `json:"unassigned"` // students whose class is unknown to the source
	Skipped    int `json:"skipped"`    // rows without an external id or name
}

// Syncer upserts classes and students from a Source into the roster store.
// Students are never deleted by a sync; removal goes through DeleteStudent.
type Syncer struct {
	source Source
	store  database.RosterWriter
	log    *logger.Logger
}

// NewSyncer creates a new roster syncer.
func NewSyncer(source Source, store database.RosterWriter, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{source: source, store: store, log: log}
}

// Sync copies the current roster from the source.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	classes, err := s.source.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source classes: %w", err)
	}
	students, err := s.source.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source students: %w", err)
	}

	result := &SyncResult{}
	classIDs := make(map[string]int64, len(classes))
	for _, sc := range classes {
		if sc.ExternalID == "" {
			result.Skipped++
			continue
		}
		class := &database.Class{ExternalID: sc.ExternalID, Name: CleanName(sc.Name)}
		if err := s.store.UpsertClass(ctx, class); err != nil {
			return result, fmt.Errorf("upsert class %s: %w", sc.ExternalID, err)
		}
		classIDs[sc.ExternalID] = class.ID
		result.Classes++
	}

	for _, ss := range students {
		name := CleanName(ss.FullName)
		if ss.ExternalID == "" || name == "" {
			result.Skipped++
			continue
		}
		student := &database.Student{
			ExternalID: ss.ExternalID,
			FullName:   name,
			NameKey:    NameKey(name),
		}
		if ss.ClassExternalID != "" {
			if id, ok := classIDs[ss.ClassExternalID]; ok {
				student.ClassID = &id
			} else {
				s.log.Warn("student references unknown class",
					"student", ss.ExternalID, "class", ss.ClassExternalID)
			}
		}
		if student.ClassID == nil {
			result.Unassigned++
		}
		if err := s.store.UpsertStudent(ctx, student); err != nil {
			return result, fmt.Errorf("upsert student %s: %w", ss.ExternalID, err)
		}
		result.Students++
	}

	s.log.Info("roster synced",
		"classes", result.Classes, "students", result.Students,
		"unassigned", result.Unassigned, "skipped", result.Skipped)
	return result, nil
}
