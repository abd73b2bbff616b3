package services

import "errors"

// Attendance service errors
var (
	// Upload errors
	ErrInvalidInput = errors.New("invalid input")

	// Result errors
	ErrInvalidResultID = errors.New("invalid result identifier")
)
