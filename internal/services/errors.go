package services

import "errors"

var (
	// ErrInvalidArgument is returned for blank queries and missing ids.
	// Nothing is looked up or persisted when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned for unknown users and chat records.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRated is returned when a chat record already carries feedback.
	ErrAlreadyRated = errors.New("feedback already recorded")
)
