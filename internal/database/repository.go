package database

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// RosterReader provides read-only access to classes and students
type RosterReader interface {
	// GetClass retrieves a class by ID, returns nil if not found
	GetClass(ctx context.Context, id int64) (*Class, error)
	// GetStudent retrieves a student by ID, returns nil if not found
	GetStudent(ctx context.Context, id int64) (*Student, error)
	// GetStudentByExternalID retrieves a student by school system ID, returns nil if not found
	GetStudentByExternalID(ctx context.Context, externalID string) (*Student, error)
	// FindStudentsByNameKey returns students whose normalized name equals key
	FindStudentsByNameKey(ctx context.Context, key string) ([]Student, error)
	// ListStudents returns students ordered by ID, optionally restricted to one class
	ListStudents(ctx context.Context, classID *int64) ([]Student, error)
	// CountStudents returns the number of students in a class
	CountStudents(ctx context.Context, classID int64) (int, error)
}

// RosterWriter provides write access to classes and students
type RosterWriter interface {
	RosterReader

	// UpsertClass inserts or updates a class by ExternalID and sets class.ID
	UpsertClass(ctx context.Context, class *Class) error
	// UpsertStudent inserts or updates a student by ExternalID and sets student.ID.
	// FaceEnrolled is never written here.
	UpsertStudent(ctx context.Context, student *Student) error
	// UpdateStudent applies a partial update, returns ErrNotFound for unknown IDs
	UpdateStudent(ctx context.Context, id int64, update StudentUpdate) error
	// DeleteStudent removes a student together with its embedding and attendance records
	DeleteStudent(ctx context.Context, id int64) error
}

// EnrollmentReader provides read-only access to enrolled face embeddings
type EnrollmentReader interface {
	// CandidatePool returns (student, embedding) pairs ordered by student ID.
	// A class scope restricts the pool to that class's roster.
	CandidatePool(ctx context.Context, scope PoolScope) ([]facematch.Candidate, error)
	// HasEmbedding checks if a student has an enrolled face
	HasEmbedding(ctx context.Context, studentID int64) (bool, error)
	// GetEmbedding retrieves a student's embedding, returns nil if not enrolled
	GetEmbedding(ctx context.Context, studentID int64) (*FaceEmbedding, error)
	// CountEnrolled returns the number of enrolled students, optionally per class
	CountEnrolled(ctx context.Context, classID *int64) (int, error)
}

// EnrollmentWriter provides write access to enrolled face embeddings
type EnrollmentWriter interface {
	EnrollmentReader

	// UpsertEmbedding replaces the student's embedding and sets face_enrolled in one transaction.
	// Returns ErrStudentNotFound for unknown students.
	UpsertEmbedding(ctx context.Context, emb FaceEmbedding) error
	// DeleteEmbedding removes the embedding and clears face_enrolled in one transaction
	DeleteEmbedding(ctx context.Context, studentID int64) error
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// MarkExists checks whether the (student, class, day) key is already marked
	MarkExists(ctx context.Context, studentID, classID int64, day time.Time) (bool, error)
	// GetMark retrieves the record for a key, returns nil if not marked
	GetMark(ctx context.Context, studentID, classID int64, day time.Time) (*AttendanceRecord, error)
	// ListByClass returns a class's records ordered by mark time, optionally for one day
	ListByClass(ctx context.Context, classID int64, day *time.Time) ([]AttendanceRecord, error)
	// ListByDay returns all records of a day ordered by mark time, optionally for one class
	ListByDay(ctx context.Context, day time.Time, classID *int64) ([]AttendanceRecord, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// InsertMark inserts the record unless its (student, class, day) key exists.
	// Returns false without error when the key was already marked; the storage
	// uniqueness constraint decides, so concurrent callers cannot both insert.
	InsertMark(ctx context.Context, rec *AttendanceRecord) (bool, error)
}
