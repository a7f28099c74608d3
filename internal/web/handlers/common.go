package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors to HTTP statuses. Unknown errors are logged and reported as 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var dup *facematch.DuplicateFaceError
	switch {
	case errors.As(err, &dup):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":      "face already enrolled for another student",
			"student_id": dup.StudentID,
			"similarity": dup.Similarity,
		})
	case errors.Is(err, extractor.ErrNoFaceDetected):
		respondError(w, http.StatusUnprocessableEntity, "no face detected")
	case errors.Is(err, extractor.ErrMultipleFacesDetected):
		var countErr *extractor.FaceCountError
		if errors.As(err, &countErr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":       "multiple faces detected",
				"faces_count": countErr.Count,
			})
			return
		}
		respondError(w, http.StatusUnprocessableEntity, "multiple faces detected")
	case errors.Is(err, extractor.ErrInvalidImage):
		respondError(w, http.StatusUnprocessableEntity, "invalid image")
	case errors.Is(err, recognition.ErrInvalidThreshold):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrStudentNotFound):
		respondError(w, http.StatusNotFound, "student not found")
	case errors.Is(err, database.ErrClassNotFound):
		respondError(w, http.StatusNotFound, "class not found")
	default:
		log.Error("request failed", "method", r.Method, "path", sanitizeForLog(r.URL.Path), "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// readImage reads the uploaded image from the multipart form.
func readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(constants.UploadFormField)
	if err != nil {
		return nil, fmt.Errorf("%s is required", constants.UploadFormField)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize+1))
	if err != nil {
		return nil, errors.New("failed to read file")
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	if len(data) > constants.MaxUploadSize {
		return nil, errors.New("file too large")
	}
	return data, nil
}

// parseID parses a positive integer identifier.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// urlID reads a positive integer URL parameter.
func urlID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name))
}

// optionalID parses an optional positive integer, nil when empty.
func optionalID(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalDay parses an optional YYYY-MM-DD date, nil when empty.
func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	day, err := database.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &day, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
