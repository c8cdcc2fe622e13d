package http

import (
	"net/http"

	"cardlink/backend/internal/authctx"
	"cardlink/backend/internal/domain/analytics"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/domain/session"
	"cardlink/backend/internal/httpjson"
)

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var in session.LoginInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.SessionSvc.Login(r.Context(), in)
	if err != nil {
		s.fail(w, r, err, mapSessionError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) getSelf(w http.ResponseWriter, r *http.Request) {
	p, _ := authctx.PrincipalFrom(r.Context())
	out, err := s.CardholderSvc.GetSelf(r.Context(), p.UID)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) updateSelf(w http.ResponseWriter, r *http.Request) {
	p, _ := authctx.PrincipalFrom(r.Context())
	var in cardholder.SelfUpdateInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.CardholderSvc.UpdateSelf(r.Context(), p.UID, in)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) getSelfAnalytics(w http.ResponseWriter, r *http.Request) {
	p, _ := authctx.PrincipalFrom(r.Context())
	profile, err := s.CardholderSvc.GetSelf(r.Context(), p.UID)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	out, err := s.AnalyticsSvc.GetUserAnalytics(r.Context(), profile.ID, profile.CreatedAt, rangeQuery(r))
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func rangeQuery(r *http.Request) analytics.RangeQuery {
	q := r.URL.Query()
	return analytics.RangeQuery{Range: q.Get("range"), From: q.Get("from"), To: q.Get("to")}
}
