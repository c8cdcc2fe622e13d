package billing

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrLimitReached = errors.New("plan limit reached")
)

func IsErrNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsErrForbidden(err error) bool    { return errors.Is(err, ErrForbidden) }
func IsErrBadRequest(err error) bool   { return errors.Is(err, ErrBadRequest) }
func IsErrLimitReached(err error) bool { return errors.Is(err, ErrLimitReached) }
