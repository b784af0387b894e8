package domain

import "errors"

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrNoTenant         = errors.New("no tenant scope")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrStoreUnavailable = errors.New("store unavailable")
)
