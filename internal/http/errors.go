package http

import (
	"net/http"

	"cardlink/backend/internal/authctx"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/domain/analytics"
	"cardlink/backend/internal/domain/billing"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/domain/session"
	"cardlink/backend/internal/httpjson"

	"go.uber.org/zap"
)

const internalErrorMessage = "internal server error"

// fail writes the mapped status. 5xx details go to the log only.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error, mapErr func(error) (int, string)) {
	status, msg := mapErr(err)
	if status >= 500 {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("requestId", authctx.RequestID(r.Context())),
			zap.Error(err))
		msg = internalErrorMessage
	}
	httpjson.Error(w, status, msg)
}

// mapLimitError covers billing errors surfaced through plan limit checks.
func mapLimitError(err error) (int, string, bool) {
	switch {
	case billing.IsErrLimitReached(err):
		return http.StatusPaymentRequired, err.Error(), true
	case billing.IsErrNotFound(err):
		return http.StatusNotFound, err.Error(), true
	}
	return 0, "", false
}

func mapAdminError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	if status, msg, ok := mapLimitError(err); ok {
		return status, msg
	}
	switch {
	case admin.IsErrBadRequest(err):
		return 400, err.Error()
	case admin.IsErrUnauthorized(err):
		return 401, err.Error()
	case admin.IsErrForbidden(err):
		return 403, err.Error()
	case admin.IsErrNotFound(err):
		return 404, err.Error()
	case admin.IsErrConflict(err):
		return 409, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapCardholderError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	if status, msg, ok := mapLimitError(err); ok {
		return status, msg
	}
	switch {
	case cardholder.IsErrBadRequest(err):
		return 400, err.Error()
	case cardholder.IsErrUnauthorized(err):
		return 401, err.Error()
	case cardholder.IsErrForbidden(err):
		return 403, err.Error()
	case cardholder.IsErrNotFound(err):
		return 404, err.Error()
	case cardholder.IsErrConflict(err):
		return 409, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapSessionError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case session.IsErrBadRequest(err):
		return 400, err.Error()
	case session.IsErrUnauthorized(err):
		return 401, err.Error()
	case session.IsErrNotFound(err):
		return 404, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapAnalyticsError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case analytics.IsErrBadRequest(err):
		return 400, err.Error()
	case analytics.IsErrForbidden(err):
		return 403, err.Error()
	case analytics.IsErrNotFound(err):
		return 404, err.Error()
	default:
		return 500, err.Error()
	}
}

func mapBillingError(err error) (int, string) {
	if err == nil {
		return 500, "unknown error"
	}
	switch {
	case billing.IsErrLimitReached(err):
		return 402, err.Error()
	case billing.IsErrBadRequest(err):
		return 400, err.Error()
	case billing.IsErrForbidden(err):
		return 403, err.Error()
	case billing.IsErrNotFound(err):
		return 404, err.Error()
	default:
		return 500, err.Error()
	}
}
