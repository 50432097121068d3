package api

import (
	"errors"
	"fmt"
	"net/http"

	repository "github.com/okian/pong/internal/adapters/repository"
	service "github.com/okian/pong/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// opError tags an error with the handler operation that produced it.
// errors.Is matches both the kind and the wrapped cause.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.kind != nil && e.err != nil:
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
	case e.kind != nil:
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	default:
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
}

func (e *opError) Unwrap() []error {
	var errs []error
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// classify maps an error to an HTTP status and a machine readable code.
func classify(err error) (int, string) {
	var dup *service.DuplicateError
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidMatch),
		errors.Is(err, service.ErrSamePlayer),
		errors.Is(err, service.ErrWinnerNotInMatch),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrInvalidTime):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrPlayerExists):
		return http.StatusConflict, "player_exists"
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrMatchExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
