package http

import (
	"fmt"
	"net/http"
	"strings"

	"cardlink/backend/internal/domain/analytics"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/domain/vcard"
	"cardlink/backend/internal/httpjson"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const visitorHeader = "X-Visitor-ID"

type publicProfileResp struct {
	Profile    cardholder.PublicProfile `json:"profile"`
	ProfileURL string                   `json:"profileUrl"`
	VCardURL   string                   `json:"vcardUrl"`
	VisitorID  string                   `json:"visitorId,omitempty"`
}

func (s *server) getPublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}

	out := publicProfileResp{
		Profile:    p.Public(),
		ProfileURL: s.profileURL(p.Slug),
		VCardURL:   "/v1/public/profiles/" + p.Slug + "/vcard",
	}

	if r.URL.Query().Get("track") != "false" {
		res, err := s.AnalyticsSvc.RecordView(r.Context(), target(p), trackFromQuery(r))
		if err != nil {
			// the profile is still served
			s.log.Warn("failed to record view", zap.String("userId", p.ID), zap.Error(err))
		} else {
			out.VisitorID = res.VisitorID
		}
	}

	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) recordView(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}

	var in analytics.TrackInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	fillTrack(r, &in)

	res, err := s.AnalyticsSvc.RecordView(r.Context(), target(p), in)
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	status := http.StatusCreated
	if !res.Recorded {
		status = http.StatusOK
	}
	httpjson.OK(w, status, res)
}

func (s *server) recordContactSave(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}

	var in analytics.TrackInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	fillTrack(r, &in)

	res, err := s.AnalyticsSvc.RecordContactSave(r.Context(), target(p), in)
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	httpjson.OK(w, http.StatusCreated, res)
}

// downloadVCard serves the .vcf and counts it as a contact save unless
// track=false (the client already posted /contact-saves).
func (s *server) downloadVCard(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}

	if r.URL.Query().Get("track") != "false" {
		if _, err := s.AnalyticsSvc.RecordContactSave(r.Context(), target(p), trackFromQuery(r)); err != nil {
			s.log.Warn("failed to record contact save", zap.String("userId", p.ID), zap.Error(err))
		}
	}

	body := vcard.Build(*p, vcard.Options{ProfileURL: s.profileURL(p.Slug)})
	w.Header().Set("Content-Type", vcard.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, vcard.FileName(*p)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *server) profileURL(slug string) string {
	if s.Cfg.PublicBaseURL == "" {
		return ""
	}
	return s.Cfg.PublicBaseURL + "/" + slug
}

func target(p *cardholder.Profile) analytics.Target {
	return analytics.Target{UserID: p.ID, CompanyID: p.CompanyID}
}

// trackFromQuery reads ?src=&ref=&vid= used by QR codes and NFC tags.
func trackFromQuery(r *http.Request) analytics.TrackInput {
	q := r.URL.Query()
	in := analytics.TrackInput{
		Source:    firstNonEmpty(q.Get("src"), q.Get("source")),
		Referrer:  q.Get("ref"),
		VisitorID: q.Get("vid"),
	}
	fillTrack(r, &in)
	return in
}

func fillTrack(r *http.Request, in *analytics.TrackInput) {
	in.UserAgent = r.UserAgent()
	if in.Referrer == "" {
		in.Referrer = r.Referer()
	}
	if in.VisitorID == "" {
		in.VisitorID = r.Header.Get(visitorHeader)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
