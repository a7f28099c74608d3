// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Upload constants
const (
	// MaxUploadSize is the maximum face image upload size in bytes (10MB)
	MaxUploadSize = 10 << 20

	// UploadFormField is the multipart field carrying the image
	UploadFormField = "file"
)

// Processing constants
const (
	// EnrollWorkers is the default number of parallel workers for bulk enrollment
	EnrollWorkers = 4

	// RequestTimeout bounds a single API request including model inference
	RequestTimeout = 60 * time.Second
)

// ImageExtensions lists file extensions picked up by bulk enrollment
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}
