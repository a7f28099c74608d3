package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// app holds the wired components shared by commands.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	pool       *postgres.Pool
	roster     database.RosterWriter
	enrollment database.EnrollmentWriter
	marks      database.AttendanceWriter
	gate       *attendance.Gate
	service    *recognition.Service
	reporter   *attendance.Reporter
}

// loadConfig loads and validates configuration and builds the logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// initPostgres connects, migrates and registers the PostgreSQL repositories.
func initPostgres(ctx context.Context, cfg *config.Config, log *logger.Logger) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Recognition.EmbeddingDim != database.FaceEmbeddingDim {
		return nil, fmt.Errorf("FACE_EMBEDDING_DIM=%d does not match the stored vector(%d) column",
			cfg.Recognition.EmbeddingDim, database.FaceEmbeddingDim)
	}
	pool, err := postgres.Initialize(ctx, &cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	rosterRepo := postgres.NewRosterRepository(pool)
	enrollmentRepo := postgres.NewEnrollmentRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	database.RegisterPostgresBackend(
		func() database.RosterWriter { return rosterRepo },
		func() database.EnrollmentWriter { return enrollmentRepo },
		func() database.AttendanceWriter { return attendanceRepo },
	)
	return pool, nil
}

// newExtractor returns an extractor that connects to the embedding server on first use.
func newExtractor(cfg *config.Config, log *logger.Logger) *extractor.Lazy {
	return extractor.NewLazy(cfg.Embedding.Model, func(ctx context.Context) (*extractor.Extractor, error) {
		client := extractor.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
		if err := client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("embedding server unavailable: %w", err)
		}
		log.Info("embedding server ready", "url", cfg.Embedding.URL, "model", client.Model())
		return extractor.New(client, cfg.Recognition.EmbeddingDim, cfg.Recognition.MaxImageSide), nil
	})
}

// newApp loads configuration, initializes storage and wires the services.
func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.Attendance.Window()
	if err != nil {
		return nil, err
	}
	pool, err := initPostgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, pool: pool}
	if err := a.openRepositories(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.gate = attendance.NewGate(a.marks, attendance.GateConfig{
		Location: loc,
		Window:   attendance.Window{Start: start, End: end},
	}, log)
	a.service = recognition.NewService(newExtractor(cfg, log), a.roster, a.enrollment, a.gate, recognition.Options{
		Threshold: cfg.Recognition.Threshold,
	}, log)
	a.reporter = attendance.NewReporter(a.marks, a.roster, a.gate)
	return a, nil
}

func (a *app) openRepositories(ctx context.Context) error {
	var err error
	if a.roster, err = database.GetRosterWriter(ctx); err != nil {
		return fmt.Errorf("failed to get roster writer: %w", err)
	}
	if a.enrollment, err = database.GetEnrollmentWriter(ctx); err != nil {
		return fmt.Errorf("failed to get enrollment writer: %w", err)
	}
	if a.marks, err = database.GetAttendanceWriter(ctx); err != nil {
		return fmt.Errorf("failed to get attendance writer: %w", err)
	}
	return nil
}

// Close releases the database pool and flushes logs.
func (a *app) Close() {
	if err := a.pool.Close(); err != nil {
		a.log.Warn("failed to close database pool", "error", err)
	}
	a.log.Sync()
}

// resolveStudent finds a student by internal id or external id.
func (a *app) resolveStudent(ctx context.Context, id int64, externalID string) (*database.Student, error) {
	var (
		student *database.Student
		err     error
	)
	switch {
	case id > 0:
		student, err = a.roster.GetStudent(ctx, id)
	case externalID != "":
		student, err = a.roster.GetStudentByExternalID(ctx, externalID)
	default:
		return nil, errors.New("either --student-id or --external-id is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up student: %w", err)
	}
	if student == nil {
		return nil, database.ErrStudentNotFound
	}
	return student, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
