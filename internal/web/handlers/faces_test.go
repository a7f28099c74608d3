package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestFacesHandler_Register_Success(t *testing.T) {
	env := newTestEnv(t)

	recorder := httptest.NewRecorder()
	req := multipartRequest(t, "/api/v1/faces/register", "anna.jpg", map[string]string{
		"student_id": strconv.FormatInt(env.anna, 10),
	})
	env.faces.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var resp RegisterResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.StudentID != env.anna || resp.Replaced || resp.Model != "stub" || resp.Dim != 4 {
		t.Errorf("unexpected response %+v", resp)
	}

	// Registering again replaces the embedding.
	recorder = httptest.NewRecorder()
	req = multipartRequest(t, "/api/v1/faces/register", "anna-cam.jpg", map[string]string{
		"student_id": strconv.FormatInt(env.anna, 10),
	})
	env.faces.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	parseJSONResponse(t, recorder, &resp)
	if !resp.Replaced {
		t.Error("expected replaced to be true")
	}
}

func TestFacesHandler_Register_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)
	bara := strconv.FormatInt(env.bara, 10)

	tests := []struct {
		name    string
		image   string
		fields  map[string]string
		status  int
		message string
	}{
		{"missing student", "bara.jpg", nil, http.StatusBadRequest, "student_id is required"},
		{"missing file", "", map[string]string{"student_id": bara}, http.StatusBadRequest, "file is required"},
		{"unknown student", "bara.jpg", map[string]string{"student_id": "999"}, http.StatusNotFound, "student not found"},
		{"no face", "empty.jpg", map[string]string{"student_id": bara}, http.StatusUnprocessableEntity, "no face detected"},
		{"many faces", "group.jpg", map[string]string{"student_id": bara}, http.StatusUnprocessableEntity, "multiple faces detected"},
		{"unreadable", "garbage", map[string]string{"student_id": bara}, http.StatusUnprocessableEntity, "invalid image"},
		{"duplicate", "anna-cam.jpg", map[string]string{"student_id": bara}, http.StatusConflict, "face already enrolled for another student"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			env.faces.Register(recorder, multipartRequest(t, "/api/v1/faces/register", tc.image, tc.fields))

			assertStatusCode(t, recorder, tc.status)
			assertJSONError(t, recorder, tc.message)
		})
	}

	if has, _ := env.enrollment.HasEmbedding(t.Context(), env.bara); has {
		t.Error("failed registrations must not store an embedding")
	}
}

func TestFacesHandler_Register_NotMultipart(t *testing.T) {
	env := newTestEnv(t)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/register", nil)
	env.faces.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "failed to parse multipart form")
}

func TestFacesHandler_Verify_MarksAttendance(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)
	env.enroll(t, "bara.jpg", env.bara)

	recorder := httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna-cam.jpg", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Matched || resp.StudentID != env.anna || resp.StudentName != "Anna Novakova" {
		t.Errorf("unexpected match %+v", resp)
	}
	if !resp.Marked || resp.AlreadyMarked {
		t.Errorf("expected a new mark, got %+v", resp)
	}
	if resp.Attendance == nil || resp.Attendance.Date != "2026-10-19" || resp.Attendance.ClassID != env.classID {
		t.Errorf("unexpected attendance %+v", resp.Attendance)
	}

	// Second frame on the same day.
	recorder = httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna.jpg", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	resp = VerifyResponse{}
	parseJSONResponse(t, recorder, &resp)
	if resp.Marked || !resp.AlreadyMarked {
		t.Errorf("expected already marked, got %+v", resp)
	}
	if env.marks.Count() != 1 {
		t.Errorf("expected 1 attendance record, got %d", env.marks.Count())
	}
}

func TestFacesHandler_Verify_NoMark(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)

	recorder := httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna-cam.jpg", map[string]string{
		"mark": "false",
	}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if !resp.Matched || resp.Marked || resp.AlreadyMarked {
		t.Errorf("unexpected response %+v", resp)
	}
	if env.marks.Count() != 0 {
		t.Errorf("expected no attendance records, got %d", env.marks.Count())
	}
}

func TestFacesHandler_Verify_NoMatch(t *testing.T) {
	env := newTestEnv(t)

	// Empty pool.
	recorder := httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "stranger.jpg", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Matched || resp.Reason != "no_enrolled_faces" || resp.Threshold != 0.6 {
		t.Errorf("unexpected response %+v", resp)
	}

	env.enroll(t, "anna.jpg", env.anna)

	recorder = httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "stranger.jpg", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	resp = VerifyResponse{}
	parseJSONResponse(t, recorder, &resp)
	if resp.Matched || resp.Reason != "no_match" || resp.StudentID != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if env.marks.Count() != 0 {
		t.Errorf("expected no attendance records, got %d", env.marks.Count())
	}
}

func TestFacesHandler_Verify_ThresholdOverride(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)

	recorder := httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna-cam.jpg", map[string]string{
		"threshold": "0.99",
	}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Matched || resp.Threshold != 0.99 {
		t.Errorf("expected no match at 0.99, got %+v", resp)
	}
}

func TestFacesHandler_Verify_BadInput(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)

	tests := []struct {
		name    string
		fields  map[string]string
		status  int
		message string
	}{
		{"threshold not a number", map[string]string{"threshold": "high"}, http.StatusBadRequest, "invalid threshold"},
		{"threshold out of range", map[string]string{"threshold": "1.5"}, http.StatusUnprocessableEntity, "invalid threshold"},
		{"mark not a bool", map[string]string{"mark": "maybe"}, http.StatusBadRequest, "invalid mark"},
		{"class id", map[string]string{"class_id": "x"}, http.StatusBadRequest, "invalid class_id"},
		{"unknown class", map[string]string{"class_id": "999"}, http.StatusNotFound, "class not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna-cam.jpg", tc.fields))

			assertStatusCode(t, recorder, tc.status)
			if tc.status == http.StatusBadRequest {
				assertJSONError(t, recorder, tc.message)
			}
		})
	}
}

func TestFacesHandler_Verify_OtherClass(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)

	// Anna is not enrolled in the other class, so its pool is empty.
	recorder := httptest.NewRecorder()
	env.faces.Verify(recorder, multipartRequest(t, "/api/v1/faces/verify", "anna-cam.jpg", map[string]string{
		"class_id": strconv.FormatInt(env.otherClass, 10),
	}))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp VerifyResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Matched || resp.Reason != "no_enrolled_faces" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestFacesHandler_StatusAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(t, "anna.jpg", env.anna)
	id := strconv.FormatInt(env.anna, 10)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/students/"+id+"/face", nil), map[string]string{"id": id})
	env.faces.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var status FaceStatusResponse
	parseJSONResponse(t, recorder, &status)
	if !status.Enrolled || status.Model != "stub" || status.Dim != 4 {
		t.Errorf("unexpected status %+v", status)
	}

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/students/"+id+"/face", nil), map[string]string{"id": id})
	env.faces.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/students/"+id+"/face", nil), map[string]string{"id": id})
	env.faces.Status(recorder, req)

	status = FaceStatusResponse{}
	parseJSONResponse(t, recorder, &status)
	if status.Enrolled {
		t.Error("expected face to be removed")
	}
}

func TestFacesHandler_Status_Errors(t *testing.T) {
	env := newTestEnv(t)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/students/abc/face", nil), map[string]string{"id": "abc"})
	env.faces.Status(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/api/v1/students/999/face", nil), map[string]string{"id": "999"})
	env.faces.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "student not found")
}
