// Package api contains API contract definitions for the attendance processing
// service. Version v1 represents the current stable API version.
package api

// UploadRequest describes an uploaded punch report before it enters the
// processing pipeline. The filename must not carry path separators or
// traversal sequences.
type UploadRequest struct {
	Filename  string `json:"filename" validate:"required,filename"`
	SizeBytes int64  `json:"size_bytes" validate:"omitempty,min=1"`
}
