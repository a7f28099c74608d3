package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// EnrollmentRepository provides PostgreSQL-backed storage of enrolled face embeddings.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// CandidatePool returns (student, embedding) pairs ordered by student ID.
func (r *EnrollmentRepository) CandidatePool(ctx context.Context, scope database.PoolScope) ([]facematch.Candidate, error) {
	query := `
		SELECT s.id, s.class_id, e.embedding
		FROM face_embeddings e
		JOIN students s ON s.id = e.student_id
	`
	var args []any
	if scope.ClassID != nil {
		query += " WHERE s.class_id = $1"
		args = append(args, *scope.ClassID)
	}
	query += " ORDER BY s.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate pool: %w", err)
	}
	defer rows.Close()

	var pool []facematch.Candidate
	for rows.Next() {
		var c facematch.Candidate
		var classID sql.NullInt64
		var vec pgvector.Vector
		if err := rows.Scan(&c.StudentID, &classID, &vec); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if classID.Valid {
			id := classID.Int64
			c.ClassID = &id
		}
		c.Embedding = vec.Slice()
		pool = append(pool, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return pool, nil
}

// HasEmbedding checks if a student has an enrolled face.
func (r *EnrollmentRepository) HasEmbedding(ctx context.Context, studentID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM face_embeddings WHERE student_id = $1)", studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check embedding exists: %w", err)
	}
	return exists, nil
}

// GetEmbedding retrieves a student's embedding, returns nil if not enrolled.
func (r *EnrollmentRepository) GetEmbedding(ctx context.Context, studentID int64) (*database.FaceEmbedding, error) {
	var emb database.FaceEmbedding
	var vec pgvector.Vector

	err := r.pool.QueryRow(ctx, `
		SELECT student_id, embedding, model, dim, created_at
		FROM face_embeddings
		WHERE student_id = $1
	`, studentID).Scan(&emb.StudentID, &vec, &emb.Model, &emb.Dim, &emb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	emb.Embedding = vec.Slice()
	return &emb, nil
}

// CountEnrolled returns the number of enrolled students, optionally per class.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, classID *int64) (int, error) {
	var count int
	var err error
	if classID == nil {
		err = r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_embeddings").Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM face_embeddings e
			JOIN students s ON s.id = e.student_id
			WHERE s.class_id = $1
		`, *classID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return count, nil
}

// UpsertEmbedding replaces the student's embedding and sets face_enrolled in one transaction.
func (r *EnrollmentRepository) UpsertEmbedding(ctx context.Context, emb database.FaceEmbedding) error {
	dim := emb.Dim
	if dim == 0 {
		dim = len(emb.Embedding)
	}
	vec := pgvector.NewVector(emb.Embedding)

	return r.pool.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO face_embeddings (student_id, embedding, model, dim)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				model = EXCLUDED.model,
				dim = EXCLUDED.dim,
				created_at = NOW()
		`, emb.StudentID, vec, emb.Model, dim)
		if err != nil {
			return mapForeignKey(err, "upsert embedding")
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE students SET face_enrolled = TRUE, updated_at = NOW() WHERE id = $1", emb.StudentID,
		); err != nil {
			return fmt.Errorf("set face_enrolled: %w", err)
		}
		return nil
	})
}

// DeleteEmbedding removes the embedding and clears face_enrolled in one transaction.
func (r *EnrollmentRepository) DeleteEmbedding(ctx context.Context, studentID int64) error {
	return r.pool.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM face_embeddings WHERE student_id = $1", studentID); err != nil {
			return fmt.Errorf("delete embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE students SET face_enrolled = FALSE, updated_at = NOW() WHERE id = $1", studentID,
		); err != nil {
			return fmt.Errorf("clear face_enrolled: %w", err)
		}
		return nil
	})
}

// Compile-time interface check
var _ database.EnrollmentWriter = (*EnrollmentRepository)(nil)
