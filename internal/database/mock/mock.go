// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// MockRosterWriter is a mock implementation of database.RosterWriter
type MockRosterWriter struct {
	mu       sync.RWMutex
	classes  map[int64]*database.Class
	students map[int64]*database.Student
	nextID   int64

	// Error injection
	GetError    error
	ListError   error
	UpsertError error
	UpdateError error
	DeleteError error

	// Cascade targets notified on DeleteStudent
	enrollment *MockEnrollmentWriter
	attendance *MockAttendanceWriter
}

// NewMockRosterWriter creates a new mock roster writer
func NewMockRosterWriter() *MockRosterWriter {
	return &MockRosterWriter{
		classes:  make(map[int64]*database.Class),
		students: make(map[int64]*database.Student),
		nextID:   1,
	}
}

// AddClass adds a class to the mock store, assigning an ID when zero
func (m *MockRosterWriter) AddClass(c database.Class) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.allocID()
	}
	m.classes[c.ID] = &c
	return c.ID
}

// AddStudent adds a student to the mock store, assigning an ID when zero
func (m *MockRosterWriter) AddStudent(s database.Student) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.allocID()
	}
	m.students[s.ID] = &s
	return s.ID
}

func (m *MockRosterWriter) allocID() int64 {
	for {
		id := m.nextID
		m.nextID++
		if _, ok := m.classes[id]; ok {
			continue
		}
		if _, ok := m.students[id]; ok {
			continue
		}
		return id
	}
}

func (m *MockRosterWriter) setFaceEnrolled(studentID int64, enrolled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok {
		return false
	}
	s.FaceEnrolled = enrolled
	return true
}

func (m *MockRosterWriter) studentSnapshot(id int64) (database.Student, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return database.Student{}, false
	}
	return *s, true
}

func (m *MockRosterWriter) classExists(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.classes[id]
	return ok
}

// GetClass retrieves a class by ID
func (m *MockRosterWriter) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// GetStudent retrieves a student by ID
func (m *MockRosterWriter) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.studentSnapshot(id)
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// GetStudentByExternalID retrieves a student by school system ID
func (m *MockRosterWriter) GetStudentByExternalID(ctx context.Context, externalID string) (*database.Student, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.ExternalID == externalID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// FindStudentsByNameKey returns students with the given normalized name
func (m *MockRosterWriter) FindStudentsByNameKey(ctx context.Context, key string) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		if s.NameKey == key {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ListStudents returns students ordered by ID
func (m *MockRosterWriter) ListStudents(ctx context.Context, classID *int64) ([]database.Student, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []database.Student
	for _, s := range m.students {
		if classID != nil && (s.ClassID == nil || *s.ClassID != *classID) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CountStudents returns the number of students in a class
func (m *MockRosterWriter) CountStudents(ctx context.Context, classID int64) (int, error) {
	students, err := m.ListStudents(ctx, &classID)
	if err != nil {
		return 0, err
	}
	return len(students), nil
}

// UpsertClass inserts or updates a class by ExternalID
func (m *MockRosterWriter) UpsertClass(ctx context.Context, class *database.Class) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.classes {
		if c.ExternalID == class.ExternalID {
			c.Name = class.Name
			class.ID = c.ID
			class.CreatedAt = c.CreatedAt
			return nil
		}
	}
	class.ID = m.allocID()
	class.CreatedAt = time.Now()
	cp := *class
	m.classes[class.ID] = &cp
	return nil
}

// UpsertStudent inserts or updates a student by ExternalID, preserving FaceEnrolled
func (m *MockRosterWriter) UpsertStudent(ctx context.Context, student *database.Student) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, s := range m.students {
		if s.ExternalID == student.ExternalID {
			s.FullName = student.FullName
			s.NameKey = student.NameKey
			s.ClassID = student.ClassID
			s.UpdatedAt = now
			*student = *s
			return nil
		}
	}
	student.ID = m.allocID()
	student.FaceEnrolled = false
	student.CreatedAt = now
	student.UpdatedAt = now
	cp := *student
	m.students[student.ID] = &cp
	return nil
}

// UpdateStudent applies a partial update
func (m *MockRosterWriter) UpdateStudent(ctx context.Context, id int64, update database.StudentUpdate) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return database.ErrNotFound
	}
	if update.FullName != nil {
		s.FullName = *update.FullName
	}
	if update.NameKey != nil {
		s.NameKey = *update.NameKey
	}
	if update.ClassID.Set {
		if v := update.ClassID.Value; v != nil {
			if _, ok := m.classes[*v]; !ok {
				return database.ErrClassNotFound
			}
		}
		s.ClassID = update.ClassID.Value
	}
	s.UpdatedAt = time.Now()
	return nil
}

// DeleteStudent removes a student and cascades to its embedding and attendance
func (m *MockRosterWriter) DeleteStudent(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	_, ok := m.students[id]
	delete(m.students, id)
	enrollment, attendance := m.enrollment, m.attendance
	m.mu.Unlock()
	if !ok {
		return database.ErrNotFound
	}
	if enrollment != nil {
		enrollment.dropStudent(id)
	}
	if attendance != nil {
		attendance.dropStudent(id)
	}
	return nil
}

// MockEnrollmentWriter is a mock implementation of database.EnrollmentWriter.
// When linked to a roster it mirrors face_enrolled and enforces the student foreign key.
type MockEnrollmentWriter struct {
	mu         sync.RWMutex
	embeddings map[int64]*database.FaceEmbedding
	roster     *MockRosterWriter

	// Error injection
	PoolError   error
	GetError    error
	CountError  error
	UpsertError error
	DeleteError error

	// Call tracking
	PoolCalls int
}

// NewMockEnrollmentWriter creates a new mock enrollment writer. roster may be nil.
func NewMockEnrollmentWriter(roster *MockRosterWriter) *MockEnrollmentWriter {
	m := &MockEnrollmentWriter{
		embeddings: make(map[int64]*database.FaceEmbedding),
		roster:     roster,
	}
	if roster != nil {
		roster.mu.Lock()
		roster.enrollment = m
		roster.mu.Unlock()
	}
	return m
}

// AddEmbedding adds an embedding to the mock store
func (m *MockEnrollmentWriter) AddEmbedding(emb database.FaceEmbedding) {
	m.mu.Lock()
	m.embeddings[emb.StudentID] = &emb
	m.mu.Unlock()
	if m.roster != nil {
		m.roster.setFaceEnrolled(emb.StudentID, true)
	}
}

func (m *MockEnrollmentWriter) dropStudent(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.embeddings, id)
}

// CandidatePool returns (student, embedding) pairs ordered by student ID
func (m *MockEnrollmentWriter) CandidatePool(ctx context.Context, scope database.PoolScope) ([]facematch.Candidate, error) {
	m.mu.Lock()
	m.PoolCalls++
	m.mu.Unlock()
	if m.PoolError != nil {
		return nil, m.PoolError
	}

	m.mu.RLock()
	ids := make([]int64, 0, len(m.embeddings))
	for id := range m.embeddings {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)

	pool := make([]facematch.Candidate, 0, len(ids))
	for _, id := range ids {
		m.mu.RLock()
		emb, ok := m.embeddings[id]
		var vec []float32
		if ok {
			vec = slices.Clone(emb.Embedding)
		}
		m.mu.RUnlock()
		if !ok {
			continue
		}

		var classID *int64
		if m.roster != nil {
			s, exists := m.roster.studentSnapshot(id)
			if !exists {
				continue
			}
			classID = s.ClassID
		}
		if scope.ClassID != nil && (classID == nil || *classID != *scope.ClassID) {
			continue
		}
		pool = append(pool, facematch.Candidate{StudentID: id, ClassID: classID, Embedding: vec})
	}
	return pool, nil
}

// HasEmbedding checks if a student has an enrolled face
func (m *MockEnrollmentWriter) HasEmbedding(ctx context.Context, studentID int64) (bool, error) {
	if m.GetError != nil {
		return false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.embeddings[studentID]
	return ok, nil
}

// GetEmbedding retrieves a student's embedding
func (m *MockEnrollmentWriter) GetEmbedding(ctx context.Context, studentID int64) (*database.FaceEmbedding, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	emb, ok := m.embeddings[studentID]
	if !ok {
		return nil, nil
	}
	cp := *emb
	cp.Embedding = slices.Clone(emb.Embedding)
	return &cp, nil
}

// CountEnrolled returns the number of enrolled students
func (m *MockEnrollmentWriter) CountEnrolled(ctx context.Context, classID *int64) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	pool, err := m.CandidatePool(ctx, database.PoolScope{ClassID: classID})
	if err != nil {
		return 0, err
	}
	return len(pool), nil
}

// UpsertEmbedding replaces a student's embedding and sets face_enrolled
func (m *MockEnrollmentWriter) UpsertEmbedding(ctx context.Context, emb database.FaceEmbedding) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	if m.roster != nil && !m.roster.setFaceEnrolled(emb.StudentID, true) {
		return fmt.Errorf("upsert embedding for %d: %w", emb.StudentID, database.ErrStudentNotFound)
	}
	emb.Embedding = slices.Clone(emb.Embedding)
	if emb.Dim == 0 {
		emb.Dim = len(emb.Embedding)
	}
	emb.CreatedAt = time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[emb.StudentID] = &emb
	return nil
}

// DeleteEmbedding removes the embedding and clears face_enrolled
func (m *MockEnrollmentWriter) DeleteEmbedding(ctx context.Context, studentID int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	delete(m.embeddings, studentID)
	m.mu.Unlock()
	if m.roster != nil {
		m.roster.setFaceEnrolled(studentID, false)
	}
	return nil
}

type markKey struct {
	studentID int64
	classID   int64
	day       string
}

// MockAttendanceWriter is a mock implementation of database.AttendanceWriter.
// The (student, class, day) key is enforced under the mutex like a unique constraint.
type MockAttendanceWriter struct {
	mu      sync.RWMutex
	records map[markKey]*database.AttendanceRecord
	roster  *MockRosterWriter

	// Error injection
	InsertError error
	ExistsError error
	ListError   error

	// Call tracking
	InsertCalls int
}

// NewMockAttendanceWriter creates a new mock attendance writer. roster may be nil.
func NewMockAttendanceWriter(roster *MockRosterWriter) *MockAttendanceWriter {
	m := &MockAttendanceWriter{
		records: make(map[markKey]*database.AttendanceRecord),
		roster:  roster,
	}
	if roster != nil {
		roster.mu.Lock()
		roster.attendance = m
		roster.mu.Unlock()
	}
	return m
}

func keyOf(studentID, classID int64, day time.Time) markKey {
	return markKey{studentID: studentID, classID: classID, day: day.Format(database.DayLayout)}
}

func (m *MockAttendanceWriter) dropStudent(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.records {
		if k.studentID == id {
			delete(m.records, k)
		}
	}
}

// Count returns the number of stored records
func (m *MockAttendanceWriter) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// InsertMark inserts the record unless its key is already marked
func (m *MockAttendanceWriter) InsertMark(ctx context.Context, rec *database.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	m.InsertCalls++
	m.mu.Unlock()
	if m.InsertError != nil {
		return false, m.InsertError
	}
	if m.roster != nil {
		if _, ok := m.roster.studentSnapshot(rec.StudentID); !ok {
			return false, fmt.Errorf("insert mark: %w", database.ErrStudentNotFound)
		}
		if !m.roster.classExists(rec.ClassID) {
			return false, fmt.Errorf("insert mark: %w", database.ErrClassNotFound)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := keyOf(rec.StudentID, rec.ClassID, rec.Day)
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now()
	}
	cp := *rec
	m.records[key] = &cp
	return true, nil
}

// MarkExists checks whether the key is already marked
func (m *MockAttendanceWriter) MarkExists(ctx context.Context, studentID, classID int64, day time.Time) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[keyOf(studentID, classID, day)]
	return ok, nil
}

// GetMark retrieves the record for a key
func (m *MockAttendanceWriter) GetMark(ctx context.Context, studentID, classID int64, day time.Time) (*database.AttendanceRecord, error) {
	if m.ExistsError != nil {
		return nil, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[keyOf(studentID, classID, day)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MockAttendanceWriter) list(match func(database.AttendanceRecord) bool) []database.AttendanceRecord {
	m.mu.RLock()
	var result []database.AttendanceRecord
	for _, rec := range m.records {
		if match(*rec) {
			result = append(result, *rec)
		}
	}
	m.mu.RUnlock()

	if m.roster != nil {
		for i := range result {
			if s, ok := m.roster.studentSnapshot(result[i].StudentID); ok {
				result[i].StudentName = s.FullName
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MarkedAt.Equal(result[j].MarkedAt) {
			return result[i].StudentID < result[j].StudentID
		}
		return result[i].MarkedAt.Before(result[j].MarkedAt)
	})
	return result
}

// ListByClass returns a class's records ordered by mark time
func (m *MockAttendanceWriter) ListByClass(ctx context.Context, classID int64, day *time.Time) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.list(func(r database.AttendanceRecord) bool {
		return r.ClassID == classID && (day == nil || r.Day.Equal(*day))
	}), nil
}

// ListByDay returns all records of a day ordered by mark time
func (m *MockAttendanceWriter) ListByDay(ctx context.Context, day time.Time, classID *int64) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.list(func(r database.AttendanceRecord) bool {
		return r.Day.Equal(day) && (classID == nil || r.ClassID == *classID)
	}), nil
}

// Compile-time interface checks
var (
	_ database.RosterWriter     = (*MockRosterWriter)(nil)
	_ database.EnrollmentWriter = (*MockEnrollmentWriter)(nil)
	_ database.AttendanceWriter = (*MockAttendanceWriter)(nil)
)
