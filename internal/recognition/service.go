// Package recognition enrolls student faces and verifies captured frames
// against the enrolled pool, marking attendance for recognized students.
package recognition

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// DefaultThreshold is the minimum cosine similarity for a match.
const DefaultThreshold = 0.6

// EmbeddingExtractor turns an image into the embedding of its only face.
type EmbeddingExtractor interface {
	Extract(ctx context.Context, image []byte) (facematch.Embedding, error)
	Model() string
}

// Options configures a Service.
type Options struct {
	Threshold float64
	Matcher   facematch.Matcher
}

// Service orchestrates enrollment and verification.
type Service struct {
	extractor  EmbeddingExtractor
	roster     database.RosterReader
	enrollment database.EnrollmentWriter
	gate       *attendance.Gate
	matcher    facematch.Matcher
	guard      facematch.Guard
	threshold  float64
	log        *logger.Logger
}

// NewService creates a new recognition service.
func NewService(
	extractor EmbeddingExtractor,
	roster database.RosterReader,
	enrollment database.EnrollmentWriter,
	gate *attendance.Gate,
	opts Options,
	log *logger.Logger,
) *Service {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Matcher == nil {
		opts.Matcher = facematch.LinearMatcher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		extractor:  extractor,
		roster:     roster,
		enrollment: enrollment,
		gate:       gate,
		matcher:    opts.Matcher,
		guard:      facematch.Guard{Matcher: opts.Matcher},
		threshold:  opts.Threshold,
		log:        log,
	}
}

// Threshold returns the default similarity threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// RegisterResult describes a successful enrollment.
type RegisterResult struct {
	StudentID int64
	Replaced  bool // a previous embedding was overwritten
	Model     string
	Dim       int
}

// RegisterFace enrolls the only face in the image for the student.
func (s *Service) RegisterFace(ctx context.Context, image []byte, studentID int64) (*RegisterResult, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	emb, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	return s.register(ctx, emb, studentID)
}

// RegisterEmbedding enrolls an already extracted embedding.
// It fails with *facematch.DuplicateFaceError when the face belongs to another student.
func (s *Service) RegisterEmbedding(ctx context.Context, emb facematch.Embedding, studentID int64) (*RegisterResult, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.register(ctx, emb, studentID)
}

func (s *Service) register(ctx context.Context, emb facematch.Embedding, studentID int64) (*RegisterResult, error) {
	pool, err := s.enrollment.CandidatePool(ctx, database.PoolScope{})
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	if err := s.guard.Check(emb, pool, studentID, s.threshold); err != nil {
		s.log.Warn("duplicate face refused", "student_id", studentID, "error", err)
		return nil, err
	}

	replaced := false
	for _, c := range pool {
		if c.StudentID == studentID {
			replaced = true
			break
		}
	}

	if err := s.enrollment.UpsertEmbedding(ctx, database.FaceEmbedding{
		StudentID: studentID,
		Embedding: emb,
		Model:     s.extractor.Model(),
		Dim:       len(emb),
	}); err != nil {
		return nil, fmt.Errorf("store embedding: %w", err)
	}

	s.log.Info("face registered", "student_id", studentID, "replaced", replaced)
	return &RegisterResult{StudentID: studentID, Replaced: replaced, Model: s.extractor.Model(), Dim: len(emb)}, nil
}

func (s *Service) requireStudent(ctx context.Context, studentID int64) error {
	student, err := s.roster.GetStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return ErrStudentNotFound
	}
	return nil
}

// VerifyOptions scopes one verification.
type VerifyOptions struct {
	ClassID   *int64   // restrict the pool to one class; nil matches all students
	Threshold *float64 // overrides the default threshold
	Mark      bool     // mark attendance for a recognized student
}

// VerifyResult describes a recognized student.
type VerifyResult struct {
	StudentID   int64
	StudentName string
	ClassID     *int64 // the student's home class
	Similarity  float64
	Threshold   float64

	// Attendance state. AlreadyMarked is reported even when Mark is false.
	Marked        bool
	AlreadyMarked bool
	Attendance    *database.AttendanceRecord
	MarkRejected  error // why a requested mark was refused
}

// VerifyFace recognizes the only face in the image.
// Unrecognized faces fail with ErrNoEnrolledFaces or *NoMatchError and leave no trace.
func (s *Service) VerifyFace(ctx context.Context, image []byte, opts VerifyOptions) (*VerifyResult, error) {
	if _, err := s.resolveThreshold(opts.Threshold); err != nil {
		return nil, err
	}
	emb, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	return s.VerifyEmbedding(ctx, emb, opts)
}

// CheckIn verifies the image and marks attendance.
func (s *Service) CheckIn(ctx context.Context, image []byte, classID *int64) (*VerifyResult, error) {
	return s.VerifyFace(ctx, image, VerifyOptions{ClassID: classID, Mark: true})
}

// VerifyEmbedding matches an already extracted embedding.
func (s *Service) VerifyEmbedding(ctx context.Context, emb facematch.Embedding, opts VerifyOptions) (*VerifyResult, error) {
	threshold, err := s.resolveThreshold(opts.Threshold)
	if err != nil {
		return nil, err
	}

	if opts.ClassID != nil {
		class, err := s.roster.GetClass(ctx, *opts.ClassID)
		if err != nil {
			return nil, fmt.Errorf("get class: %w", err)
		}
		if class == nil {
			return nil, ErrClassNotFound
		}
	}

	pool, err := s.enrollment.CandidatePool(ctx, database.PoolScope{ClassID: opts.ClassID})
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoEnrolledFaces
	}

	start := time.Now()
	match := s.matcher.FindBestMatch(emb, pool, threshold)
	s.log.Debug("matched against pool",
		"pool_size", len(pool), "best_similarity", match.Similarity, "duration", time.Since(start))
	if !match.Matched {
		return nil, &NoMatchError{BestSimilarity: match.Similarity, Threshold: threshold}
	}

	result := &VerifyResult{
		StudentID:  match.StudentID,
		ClassID:    match.ClassID,
		Similarity: match.Similarity,
		Threshold:  threshold,
	}
	student, err := s.roster.GetStudent(ctx, match.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student != nil {
		result.StudentName = student.FullName
	}

	req := attendance.MarkRequest{
		StudentID:        match.StudentID,
		RequestedClassID: opts.ClassID,
		HomeClassID:      match.ClassID,
		Confidence:       match.Similarity,
	}
	if !opts.Mark {
		marked, err := s.gate.IsMarked(ctx, req)
		if err != nil {
			return nil, err
		}
		result.AlreadyMarked = marked
		return result, nil
	}

	out, err := s.gate.Mark(ctx, req)
	if err != nil {
		return nil, err
	}
	switch out.Outcome {
	case attendance.OutcomeNew:
		result.Marked = true
		result.Attendance = out.Record
	case attendance.OutcomeAlreadyMarked:
		result.AlreadyMarked = true
		result.Attendance = out.Record
	case attendance.OutcomeRejected:
		result.MarkRejected = out.Reason
		s.log.Info("attendance mark rejected", "student_id", match.StudentID, "reason", out.Reason)
	}
	return result, nil
}

func (s *Service) resolveThreshold(override *float64) (float64, error) {
	if override == nil {
		return s.threshold, nil
	}
	if *override <= 0 || *override > 1 {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidThreshold, *override)
	}
	return *override, nil
}

// FaceStatus describes a student's enrollment.
type FaceStatus struct {
	StudentID  int64
	Enrolled   bool
	Model      string
	Dim        int
	EnrolledAt *time.Time
}

// GetFaceStatus reports whether the student has an enrolled face.
func (s *Service) GetFaceStatus(ctx context.Context, studentID int64) (*FaceStatus, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	emb, err := s.enrollment.GetEmbedding(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	status := &FaceStatus{StudentID: studentID}
	if emb != nil {
		status.Enrolled = true
		status.Model = emb.Model
		status.Dim = emb.Dim
		status.EnrolledAt = &emb.CreatedAt
	}
	return status, nil
}

// DeleteFace removes the student's embedding. Attendance records are kept.
func (s *Service) DeleteFace(ctx context.Context, studentID int64) error {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return err
	}
	if err := s.enrollment.DeleteEmbedding(ctx, studentID); err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	s.log.Info("face removed", "student_id", studentID)
	return nil
}
