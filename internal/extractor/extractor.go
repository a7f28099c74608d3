// Package extractor turns a face image into a single embedding.
// Face detection and embedding are delegated to a FaceDetector.
package extractor

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// DetectedFace is one face found by the detector.
type DetectedFace struct {
	Embedding []float32
	BBox      []float64 // [x1, y1, x2, y2]
	DetScore  float64
}

// FaceDetector returns zero or more faces, each with a fixed-length embedding.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
	Model() string
}

// Extractor validates images and returns exactly one embedding per image.
type Extractor struct {
	detector     FaceDetector
	dim          int
	maxImageSide int
}

// New creates an extractor. dim is the expected embedding length; 0 disables the check.
func New(detector FaceDetector, dim, maxImageSide int) *Extractor {
	return &Extractor{detector: detector, dim: dim, maxImageSide: maxImageSide}
}

// Model returns the name of the embedding model.
func (e *Extractor) Model() string {
	return e.detector.Model()
}

// Extract returns the embedding of the only face in the image.
func (e *Extractor) Extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	data, err := Preprocess(image, e.maxImageSide)
	if err != nil {
		return nil, err
	}

	faces, err := e.detector.DetectFaces(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	if len(faces) != 1 {
		return nil, &FaceCountError{Count: len(faces)}
	}

	emb := faces[0].Embedding
	if len(emb) == 0 || (e.dim > 0 && len(emb) != e.dim) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), e.dim)
	}
	return facematch.Embedding(emb), nil
}
