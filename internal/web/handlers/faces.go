package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// FacesHandler handles face enrollment and verification endpoints.
type FacesHandler struct {
	service *recognition.Service
	log     *logger.Logger
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(service *recognition.Service, log *logger.Logger) *FacesHandler {
	return &FacesHandler{service: service, log: log}
}

// RegisterResponse is returned after a successful enrollment.
type RegisterResponse struct {
	StudentID int64  `json:"student_id"`
	Replaced  bool   `json:"replaced"`
	Model     string `json:"model"`
	Dim       int    `json:"dim"`
}

// VerifyResponse is returned by the verify endpoint.
type VerifyResponse struct {
	Matched       bool                `json:"matched"`
	Reason        string              `json:"reason,omitempty"`
	StudentID     int64               `json:"student_id,omitempty"`
	StudentName   string              `json:"student_name,omitempty"`
	ClassID       *int64              `json:"class_id,omitempty"`
	Similarity    float64             `json:"similarity"`
	Threshold     float64             `json:"threshold"`
	Marked        bool                `json:"marked"`
	AlreadyMarked bool                `json:"already_marked"`
	MarkRejected  string              `json:"mark_rejected,omitempty"`
	Attendance    *AttendanceResponse `json:"attendance,omitempty"`
}

// FaceStatusResponse describes a student's enrollment.
type FaceStatusResponse struct {
	StudentID  int64      `json:"student_id"`
	Enrolled   bool       `json:"enrolled"`
	Model      string     `json:"model,omitempty"`
	Dim        int        `json:"dim,omitempty"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// Register enrolls the uploaded face for a student.
func (h *FacesHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	studentID, err := parseID(r.FormValue("student_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.RegisterFace(r.Context(), image, studentID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, RegisterResponse{
		StudentID: result.StudentID,
		Replaced:  result.Replaced,
		Model:     result.Model,
		Dim:       result.Dim,
	})
}

// Verify recognizes the uploaded face and, unless mark=false, marks attendance.
func (h *FacesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	opts := recognition.VerifyOptions{Mark: true}
	classID, err := optionalID(r.FormValue("class_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid class_id")
		return
	}
	opts.ClassID = classID

	if s := r.FormValue("threshold"); s != "" {
		threshold, err := strconv.ParseFloat(s, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		opts.Threshold = &threshold
	}
	if s := r.FormValue("mark"); s != "" {
		mark, err := strconv.ParseBool(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid mark")
			return
		}
		opts.Mark = mark
	}

	image, err := readImage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.VerifyFace(r.Context(), image, opts)
	var noMatch *recognition.NoMatchError
	switch {
	case errors.Is(err, recognition.ErrNoEnrolledFaces):
		respondJSON(w, http.StatusOK, VerifyResponse{Matched: false, Reason: "no_enrolled_faces", Threshold: h.threshold(opts)})
		return
	case errors.As(err, &noMatch):
		respondJSON(w, http.StatusOK, VerifyResponse{
			Matched:    false,
			Reason:     "no_match",
			Similarity: noMatch.BestSimilarity,
			Threshold:  noMatch.Threshold,
		})
		return
	case err != nil:
		respondServiceError(w, r, h.log, err)
		return
	}

	resp := VerifyResponse{
		Matched:       true,
		StudentID:     result.StudentID,
		StudentName:   result.StudentName,
		ClassID:       result.ClassID,
		Similarity:    result.Similarity,
		Threshold:     result.Threshold,
		Marked:        result.Marked,
		AlreadyMarked: result.AlreadyMarked,
	}
	if result.MarkRejected != nil {
		resp.MarkRejected = result.MarkRejected.Error()
	}
	if result.Attendance != nil {
		a := toAttendanceResponse(*result.Attendance)
		if a.StudentName == "" {
			a.StudentName = result.StudentName
		}
		resp.Attendance = &a
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *FacesHandler) threshold(opts recognition.VerifyOptions) float64 {
	if opts.Threshold != nil {
		return *opts.Threshold
	}
	return h.service.Threshold()
}

// Status reports whether a student has an enrolled face.
func (h *FacesHandler) Status(w http.ResponseWriter, r *http.Request) {
	studentID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	status, err := h.service.GetFaceStatus(r.Context(), studentID)
	if err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, FaceStatusResponse{
		StudentID:  status.StudentID,
		Enrolled:   status.Enrolled,
		Model:      status.Model,
		Dim:        status.Dim,
		EnrolledAt: status.EnrolledAt,
	})
}

// Delete removes a student's enrolled face.
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID, err := urlID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	if err := h.service.DeleteFace(r.Context(), studentID); err != nil {
		respondServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
