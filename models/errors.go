package models

import "errors"

// Domain errors shared by the mutation entry points
var (
	// Validation errors
	ErrEmptyText       = errors.New("task text cannot be empty")
	ErrEmptyName       = errors.New("project name cannot be empty")
	ErrInvalidLevel    = errors.New("attribute level must be low, medium, or high")
	ErrNegativeSeconds = errors.New("seconds to add cannot be negative")

	// Lookup errors
	ErrTaskNotFound    = errors.New("task not found")
	ErrProjectNotFound = errors.New("project not found")
)
