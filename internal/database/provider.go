package database

import (
	"context"
	"errors"
)

var (
	postgresRosterWriter     func() RosterWriter
	postgresEnrollmentWriter func() EnrollmentWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called from cmd to avoid import cycles between database and postgres.
func RegisterPostgresBackend(
	roster func() RosterWriter,
	enrollment func() EnrollmentWriter,
	attendance func() AttendanceWriter,
) {
	postgresRosterWriter = roster
	postgresEnrollmentWriter = enrollment
	postgresAttendanceWriter = attendance
	postgresInitialized = true
}

// GetRosterWriter returns a RosterWriter from the PostgreSQL backend
func GetRosterWriter(ctx context.Context) (RosterWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresRosterWriter == nil {
		return nil, errors.New("PostgreSQL roster writer not registered")
	}
	return postgresRosterWriter(), nil
}

// GetEnrollmentWriter returns an EnrollmentWriter from the PostgreSQL backend
func GetEnrollmentWriter(ctx context.Context) (EnrollmentWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresEnrollmentWriter == nil {
		return nil, errors.New("PostgreSQL enrollment writer not registered")
	}
	return postgresEnrollmentWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, errors.New("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}
