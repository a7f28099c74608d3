package handlers

import (
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

// AttendanceHandler handles attendance listing endpoints.
type AttendanceHandler struct {
	reporter *attendance.Reporter
	log      *logger.Logger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(reporter *attendance.Reporter, log *logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{reporter: reporter, log: log}
}

// AttendanceResponse is one attendance record.
type AttendanceResponse struct {
	ID              string    `json:"id"`
	StudentID       int64     `json:"student_id"`
	StudentName     string    `json:"student_name,omitempty"`
	ClassID         int64     `json:"class_id"`
	Date            string    `json:"date"`
	ConfidenceScore float64   `json:"confidence_score"`
	MarkedAt        time.Time `json:"marked_at"`
}

// SummaryResponse aggregates a class on a day.
type SummaryResponse struct {
	ClassID         int64   `json:"class_id"`
	Date            string  `json:"date"`
	TotalStudents   int     `json:"total_students"`
	PresentStudents int     `json:"present_students"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

func toAttendanceResponse(rec database.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:              rec.ID,
		StudentID:       rec.StudentID,
		StudentName:     rec.StudentName,
		ClassID:         rec.ClassID,
		Date:            rec.Day.Format(database.DayLayout),
		ConfidenceScore: rec.ConfidenceScore,
		MarkedAt:        rec.MarkedAt,
	}
}

func toAttendanceList(records []database.AttendanceRecord) []AttendanceResponse {
	result := make([]AttendanceResponse, 0, len(records))
	for _, rec := range records {
		result = append(result, toAttendanceResponse(rec))
	}
	return result
}

// Today lists today's marks, optionally filtered by class_id.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	classID, err := optionalID(r.URL.Query().Get("class_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid class_id")
		return
	}

	records, err := h.reporter.Today(r.Context(), classID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceList(records))
}

// ByClass lists a class's marks, optionally for one date.
func (h *AttendanceHandler) ByClass(w http.ResponseWriter, r *http.Request) {
	classID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	day, err := optionalDay(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.reporter.ByClass(r.Context(), classID, day)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, toAttendanceList(records))
}

// Summary returns the class's attendance rate for a date (today by default).
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	classID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid class id")
		return
	}
	day, err := optionalDay(r.URL.Query().Get("date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.reporter.Summary(r.Context(), classID, day)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, SummaryResponse{
		ClassID:         summary.ClassID,
		Date:            summary.Day.Format(database.DayLayout),
		TotalStudents:   summary.TotalStudents,
		PresentStudents: summary.PresentStudents,
		AttendanceRate:  summary.AttendanceRate,
	})
}
