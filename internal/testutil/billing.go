package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardlink/backend/internal/domain/billing"
)

// Billing is an in-memory billing.Store. UpdateBilling applies the known
// company fields and keeps every write in Writes.
type Billing struct {
	mu          sync.Mutex
	Companies   map[string]*billing.CompanyBilling
	Cardholders map[string]int
	Admins      map[string]int
	Payments    map[string][]billing.Payment
	Events      map[string][]billing.SubscriptionEvent
	Writes      []map[string]interface{}
}

func NewBilling() *Billing {
	return &Billing{
		Companies:   map[string]*billing.CompanyBilling{},
		Cardholders: map[string]int{},
		Admins:      map[string]int{},
		Payments:    map[string][]billing.Payment{},
		Events:      map[string][]billing.SubscriptionEvent{},
	}
}

// AddCompany seeds a company on the given plan.
func (s *Billing) AddCompany(id, name, plan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Companies[id] = &billing.CompanyBilling{CompanyID: id, Name: name, Plan: plan}
}

func (s *Billing) Company(id string) billing.CompanyBilling {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.Companies[id]; ok {
		return *b
	}
	return billing.CompanyBilling{}
}

func (s *Billing) GetBilling(_ context.Context, companyID string) (*billing.CompanyBilling, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Companies[companyID]
	if !ok {
		return nil, fmt.Errorf("%w: company not found", billing.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *Billing) UpdateBilling(_ context.Context, companyID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Companies[companyID]
	if !ok {
		b = &billing.CompanyBilling{CompanyID: companyID}
		s.Companies[companyID] = b
	}
	for k, v := range fields {
		switch k {
		case "plan":
			b.Plan, _ = v.(string)
		case "subscriptionId":
			b.SubscriptionID, _ = v.(string)
		case "subscriptionStatus":
			b.SubscriptionStatus, _ = v.(string)
		case "stripeCustomerId":
			b.StripeCustomerID, _ = v.(string)
		case "cancelAtPeriodEnd":
			b.CancelAtPeriodEnd, _ = v.(bool)
		case "planPeriodEnd":
			if t, ok := v.(time.Time); ok {
				b.PlanPeriodEnd = &t
			} else {
				b.PlanPeriodEnd = nil
			}
		}
	}
	s.Writes = append(s.Writes, fields)
	return nil
}

func (s *Billing) FindBySubscription(_ context.Context, subscriptionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.Companies {
		if subscriptionID != "" && b.SubscriptionID == subscriptionID {
			return id
		}
	}
	return ""
}

func (s *Billing) FindByCustomer(_ context.Context, customerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.Companies {
		if customerID != "" && b.StripeCustomerID == customerID {
			return id
		}
	}
	return ""
}

func (s *Billing) CountCardholders(_ context.Context, companyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Cardholders[companyID], nil
}

func (s *Billing) CountAdmins(_ context.Context, companyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Admins[companyID], nil
}

func (s *Billing) AddPayment(_ context.Context, companyID string, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Payments[companyID] = append(s.Payments[companyID], p)
	return nil
}

func (s *Billing) AddSubscriptionEvent(_ context.Context, companyID string, ev billing.SubscriptionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events[companyID] = append(s.Events[companyID], ev)
	return nil
}

// Gateway records Stripe calls instead of making them.
type Gateway struct {
	mu        sync.Mutex
	Customers []string
	Checkouts []billing.CheckoutRequest
	Portals   []string
	Cancels   map[string]bool
	Err       error
}

func (g *Gateway) CreateCustomer(email, _ string, _ map[string]string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Customers = append(g.Customers, email)
	return fmt.Sprintf("cus_%d", len(g.Customers)), nil
}

func (g *Gateway) CreateCheckoutSession(req billing.CheckoutRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Checkouts = append(g.Checkouts, req)
	return "https://checkout.stripe.test/" + req.PriceID, nil
}

func (g *Gateway) CreatePortalSession(customerID, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	g.Portals = append(g.Portals, customerID)
	return "https://billing.stripe.test/" + customerID, nil
}

func (g *Gateway) SetCancelAtPeriodEnd(subscriptionID string, cancel bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	if g.Cancels == nil {
		g.Cancels = map[string]bool{}
	}
	g.Cancels[subscriptionID] = cancel
	return nil
}
