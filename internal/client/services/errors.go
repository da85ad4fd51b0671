package services

import "errors"

var (
	ErrEmptyQuery       = errors.New("query must not be empty")
	ErrNothingToSave    = errors.New("nothing to save")
	ErrAlreadySaved     = errors.New("already saved to dashboard")
	ErrStaleResponse    = errors.New("response superseded by a newer request")
	ErrInvalidEntryType = errors.New("invalid entry type")
)
