package cardholder

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Conflicts the repository distinguishes.
var (
	ErrSlugTaken  = fmt.Errorf("%w: slug is already taken", ErrConflict)
	ErrEmailTaken = fmt.Errorf("%w: email is already registered", ErrConflict)
)

func IsErrBadRequest(err error) bool   { return errors.Is(err, ErrBadRequest) }
func IsErrUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsErrForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsErrNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsErrConflict(err error) bool     { return errors.Is(err, ErrConflict) }
