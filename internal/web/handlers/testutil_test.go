package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// stubExtractor returns a prepared embedding per image payload.
type stubExtractor struct {
	embeddings map[string]facematch.Embedding
}

func (s *stubExtractor) Extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	switch string(image) {
	case "empty.jpg":
		return nil, &extractor.FaceCountError{Count: 0}
	case "group.jpg":
		return nil, &extractor.FaceCountError{Count: 3}
	}
	emb, ok := s.embeddings[string(image)]
	if !ok {
		return nil, extractor.ErrInvalidImage
	}
	return emb, nil
}

func (s *stubExtractor) Model() string { return "stub" }

// testEnv wires handlers to the mock storage.
type testEnv struct {
	faces      *FacesHandler
	attendance *AttendanceHandler
	roster     *mock.MockRosterWriter
	enrollment *mock.MockEnrollmentWriter
	marks      *mock.MockAttendanceWriter
	service    *recognition.Service
	classID    int64
	otherClass int64
	anna       int64
	bara       int64
	now        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	roster := mock.NewMockRosterWriter()
	env := &testEnv{
		roster:     roster,
		enrollment: mock.NewMockEnrollmentWriter(roster),
		marks:      mock.NewMockAttendanceWriter(roster),
		now:        time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
	env.classID = roster.AddClass(database.Class{ExternalID: "7A", Name: "7.A"})
	env.otherClass = roster.AddClass(database.Class{ExternalID: "8B", Name: "8.B"})
	env.anna = roster.AddStudent(database.Student{ExternalID: "s1", FullName: "Anna Novakova", ClassID: &env.classID})
	env.bara = roster.AddStudent(database.Student{ExternalID: "s2", FullName: "Bara Dvorakova", ClassID: &env.classID})

	ext := &stubExtractor{embeddings: map[string]facematch.Embedding{
		"anna.jpg":     {1, 0, 0, 0},
		"anna-cam.jpg": {0.96, 0.28, 0, 0},
		"bara.jpg":     {0, 0, 1, 0},
		"stranger.jpg": {0, 0.5, 0, 0.866},
	}}
	gate := attendance.NewGate(env.marks, attendance.GateConfig{
		Now: func() time.Time { return env.now },
	}, logger.Nop())
	env.service = recognition.NewService(ext, roster, env.enrollment, gate, recognition.Options{Threshold: 0.6}, logger.Nop())
	env.faces = NewFacesHandler(env.service, logger.Nop())
	env.attendance = NewAttendanceHandler(attendance.NewReporter(env.marks, roster, gate), logger.Nop())
	return env
}

// enroll registers a face through the service, failing the test on error.
func (e *testEnv) enroll(t *testing.T, image string, studentID int64) {
	t.Helper()
	if _, err := e.service.RegisterFace(context.Background(), []byte(image), studentID); err != nil {
		t.Fatalf("RegisterFace(%s) error = %v", image, err)
	}
}

// multipartRequest builds a multipart POST with an optional file and form fields.
func multipartRequest(t *testing.T, path string, image string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if image != "" {
		part, err := writer.CreateFormFile("file", "frame.jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte(image))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
