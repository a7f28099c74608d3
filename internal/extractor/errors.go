package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFaceDetected is returned when the image contains no face.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrMultipleFacesDetected is returned when the image contains more than one face.
	ErrMultipleFacesDetected = errors.New("multiple faces detected")

	// ErrDimensionMismatch is returned when the model produces an embedding of unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidImage is returned when the input is not a decodable image of a supported format.
	ErrInvalidImage = errors.New("invalid image")
)

// FaceCountError carries the number of faces found when it was not exactly one.
type FaceCountError struct {
	Count int
}

func (e *FaceCountError) Error() string {
	if e.Count == 0 {
		return ErrNoFaceDetected.Error()
	}
	return fmt.Sprintf("%s: found %d faces", ErrMultipleFacesDetected, e.Count)
}

// Is lets errors.Is match the sentinel for the count.
func (e *FaceCountError) Is(target error) bool {
	if e.Count == 0 {
		return target == ErrNoFaceDetected
	}
	return target == ErrMultipleFacesDetected
}
