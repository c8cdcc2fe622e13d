package http

import (
	"net/http"
	"strconv"

	"cardlink/backend/internal/authctx"
	"cardlink/backend/internal/domain/admin"
	"cardlink/backend/internal/domain/billing"
	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/httpjson"

	"github.com/go-chi/chi/v5"
)

// callerAdmin rebuilds the admin record WithAdminAuth resolved.
func callerAdmin(p *authctx.Principal) *admin.Admin {
	return &admin.Admin{
		UID:       p.UID,
		Email:     p.Email,
		CompanyID: p.CompanyID,
		Role:      p.Role,
		IsActive:  true,
	}
}

func principal(r *http.Request) *authctx.Principal {
	p, _ := authctx.PrincipalFrom(r.Context())
	return p
}

// ===== Admins =====

func (s *server) getAdminMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	company, err := s.AdminSvc.GetCompany(r.Context(), p.CompanyID)
	if err != nil {
		s.fail(w, r, err, mapAdminError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]any{
		"uid":     p.UID,
		"email":   p.Email,
		"role":    p.Role,
		"company": company,
	})
}

func (s *server) listAdmins(w http.ResponseWriter, r *http.Request) {
	out, err := s.AdminSvc.ListAdmins(r.Context(), callerAdmin(principal(r)))
	if err != nil {
		s.fail(w, r, err, mapAdminError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) addAdmin(w http.ResponseWriter, r *http.Request) {
	var in admin.AddAdminInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.AdminSvc.AddAdmin(r.Context(), callerAdmin(principal(r)), in)
	if err != nil {
		s.fail(w, r, err, mapAdminError)
		return
	}
	httpjson.OK(w, http.StatusCreated, out)
}

func (s *server) setAdminActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.AdminSvc.SetAdminActive(r.Context(), callerAdmin(principal(r)), chi.URLParam(r, "uid"), active)
		if err != nil {
			s.fail(w, r, err, mapAdminError)
			return
		}
		httpjson.OK(w, http.StatusOK, out)
	}
}

// ===== Cardholders =====

func (s *server) listCardholders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := cardholder.ListInput{ActiveOnly: q.Get("activeOnly") == "true"}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpjson.Error(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		in.Limit = n
	}
	out, err := s.CardholderSvc.List(r.Context(), principal(r).CompanyID, in)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) createCardholder(w http.ResponseWriter, r *http.Request) {
	var in cardholder.CreateInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p := principal(r)
	out, err := s.CardholderSvc.Create(r.Context(), p.CompanyID, p.UID, in)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusCreated, out)
}

func (s *server) getCardholder(w http.ResponseWriter, r *http.Request) {
	out, err := s.CardholderSvc.Get(r.Context(), principal(r).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) updateCardholder(w http.ResponseWriter, r *http.Request) {
	var in cardholder.UpdateInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.CardholderSvc.Update(r.Context(), principal(r).CompanyID, chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) deleteCardholder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.CardholderSvc.Delete(r.Context(), principal(r).CompanyID, id); err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}

func (s *server) setCardholderPassword(w http.ResponseWriter, r *http.Request) {
	var in cardholder.PasswordInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.CardholderSvc.SetPassword(r.Context(), principal(r).CompanyID, id, in); err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]any{"id": id, "hasPassword": true})
}

func (s *server) setCardholderActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.CardholderSvc.SetActive(r.Context(), principal(r).CompanyID, chi.URLParam(r, "id"), active)
		if err != nil {
			s.fail(w, r, err, mapCardholderError)
			return
		}
		httpjson.OK(w, http.StatusOK, out)
	}
}

// ===== Analytics =====

func (s *server) getCardholderAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.Get(r.Context(), principal(r).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	out, err := s.AnalyticsSvc.GetUserAnalytics(r.Context(), p.ID, p.CreatedAt, rangeQuery(r))
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) deleteCardholderAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := s.CardholderSvc.Get(r.Context(), principal(r).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, mapCardholderError)
		return
	}
	out, err := s.AnalyticsSvc.DeleteUserAnalytics(r.Context(), p.ID)
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]any{
		"userId":  p.ID,
		"deleted": out,
		"total":   out.Total(),
	})
}

func (s *server) getCompanyAnalytics(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	company, err := s.AdminSvc.GetCompany(r.Context(), p.CompanyID)
	if err != nil {
		s.fail(w, r, err, mapAdminError)
		return
	}
	out, err := s.AnalyticsSvc.GetAnalytics(r.Context(), company.ID, company.CreatedAt, rangeQuery(r))
	if err != nil {
		s.fail(w, r, err, mapAnalyticsError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

// ===== Billing =====

func (s *server) getBilling(w http.ResponseWriter, r *http.Request) {
	out, err := s.BillingSvc.GetSubscriptionInfo(r.Context(), principal(r).CompanyID)
	if err != nil {
		s.fail(w, r, err, mapBillingError)
		return
	}
	httpjson.OK(w, http.StatusOK, out)
}

func (s *server) createCheckout(w http.ResponseWriter, r *http.Request) {
	var in billing.CreateCheckoutInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p := principal(r)
	url, err := s.BillingSvc.CreateCheckoutSession(r.Context(), p.CompanyID, p.Email, in)
	if err != nil {
		s.fail(w, r, err, mapBillingError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]string{"url": url})
}

func (s *server) createPortal(w http.ResponseWriter, r *http.Request) {
	var in billing.CreatePortalInput
	if err := httpjson.Read(w, r, &in); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	url, err := s.BillingSvc.CreatePortalSession(r.Context(), principal(r).CompanyID, in)
	if err != nil {
		s.fail(w, r, err, mapBillingError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]string{"url": url})
}

func (s *server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.BillingSvc.CancelSubscription(r.Context(), principal(r).CompanyID); err != nil {
		s.fail(w, r, err, mapBillingError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]bool{"cancelAtPeriodEnd": true})
}

func (s *server) resumeSubscription(w http.ResponseWriter, r *http.Request) {
	if err := s.BillingSvc.ResumeSubscription(r.Context(), principal(r).CompanyID); err != nil {
		s.fail(w, r, err, mapBillingError)
		return
	}
	httpjson.OK(w, http.StatusOK, map[string]bool{"cancelAtPeriodEnd": false})
}
