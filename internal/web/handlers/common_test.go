package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusOK, map[string]string{"status": "ok"})

	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusNoContent, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "invalid input")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid input")
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"no face", fmt.Errorf("extract: %w", &extractor.FaceCountError{Count: 0}), http.StatusUnprocessableEntity, "no face detected"},
		{"many faces", &extractor.FaceCountError{Count: 2}, http.StatusUnprocessableEntity, "multiple faces detected"},
		{"invalid image", fmt.Errorf("decode: %w", extractor.ErrInvalidImage), http.StatusUnprocessableEntity, "invalid image"},
		{"threshold", recognition.ErrInvalidThreshold, http.StatusUnprocessableEntity, recognition.ErrInvalidThreshold.Error()},
		{"duplicate", &facematch.DuplicateFaceError{StudentID: 4, Similarity: 0.97}, http.StatusConflict, "face already enrolled for another student"},
		{"student", database.ErrStudentNotFound, http.StatusNotFound, "student not found"},
		{"class", fmt.Errorf("verify: %w", database.ErrClassNotFound), http.StatusNotFound, "class not found"},
		{"dimension", extractor.ErrDimensionMismatch, http.StatusInternalServerError, "internal error"},
		{"other", errors.New("connection refused"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/verify", nil)
			respondServiceError(recorder, req, logger.Nop(), tc.err)

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}
}

func TestRespondServiceError_DuplicateBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/register", nil)
	respondServiceError(recorder, req, logger.Nop(), &facematch.DuplicateFaceError{StudentID: 4, Similarity: 0.97})

	var body struct {
		StudentID  int64   `json:"student_id"`
		Similarity float64 `json:"similarity"`
	}
	parseJSONResponse(t, recorder, &body)
	if body.StudentID != 4 || body.Similarity != 0.97 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("sanitizeForLog() = %q, want %q", got, "abc")
	}
}

func TestOptionalDay(t *testing.T) {
	day, err := optionalDay("2026-10-19")
	if err != nil || day == nil || day.Format(database.DayLayout) != "2026-10-19" {
		t.Errorf("optionalDay() = %v, %v", day, err)
	}
	if day, err := optionalDay(""); err != nil || day != nil {
		t.Errorf("optionalDay(\"\") = %v, %v, want nil, nil", day, err)
	}
	if _, err := optionalDay("19.10.2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := parseID(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("parseID(%q) = %d, %v", tc.in, got, err)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", body["status"])
	}
}
