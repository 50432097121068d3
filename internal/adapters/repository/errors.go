package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("player not found")
	ErrPlayerExists  = errors.New("player already exists")
	ErrMatchExists   = errors.New("match already exists")
	ErrConflict      = errors.New("rating changed concurrently")
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidTime   = errors.New("timestamp out of storable range")
	ErrUnknownDriver = errors.New("unknown store driver")
)
