package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNoActiveCase    = errors.New("no active case")
	ErrSelfLink        = errors.New("self link")
	ErrDuplicateLink   = errors.New("duplicate link")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvalidType     = errors.New("invalid evidence type")
)
