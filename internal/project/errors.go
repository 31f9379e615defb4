package project

import "errors"

var (
	ErrEmptyKey       = errors.New("project: key is required")
	ErrDuplicateKey   = errors.New("project: duplicate key")
	ErrInvalidQuota   = errors.New("project: rate limit quota must be positive")
	ErrUnknownFeature = errors.New("project: unknown feature")
)
