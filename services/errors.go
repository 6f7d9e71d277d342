package services

import "github.com/pkg/errors"

// Sentinel errors separating the outcomes handlers must distinguish:
// not-found maps to 404, forbidden to 403 (and an abuse log line),
// validation to 400. Services wrap these with context via pkg/errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)
