package billing

import (
	"context"
	"fmt"
	"time"

	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/validate"

	"go.uber.org/zap"
)

type Config struct {
	SecretKey            string
	WebhookSecret        string
	PriceProMonthly      string
	PriceProYearly       string
	PriceBusinessMonthly string
	PriceBusinessYearly  string
}

type Service struct {
	store   Store
	gateway Gateway
	config  Config
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, gateway Gateway, cfg Config, log *zap.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		config:  cfg,
		log:     logging.OrNop(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateCheckoutSession returns a Stripe Checkout URL for upgrading the
// company to a paid plan.
func (s *Service) CreateCheckoutSession(ctx context.Context, companyID, email string, in CreateCheckoutInput) (string, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	priceID := s.priceFor(in.Plan, in.Period)
	if priceID == "" {
		return "", fmt.Errorf("%w: price not configured for %s %s", ErrBadRequest, in.Plan, in.Period)
	}

	b, err := s.store.GetBilling(ctx, companyID)
	if err != nil {
		return "", err
	}

	customerID := b.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(email, b.Name, map[string]string{
			"companyId": companyID,
		})
		if err != nil {
			return "", fmt.Errorf("failed to create customer: %w", err)
		}
		if err := s.store.UpdateBilling(ctx, companyID, map[string]interface{}{
			"stripeCustomerId": customerID,
		}); err != nil {
			s.log.Warn("failed to save customer id", zap.String("companyId", companyID), zap.Error(err))
		}
	}

	url, err := s.gateway.CreateCheckoutSession(CheckoutRequest{
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
		Metadata: map[string]string{
			"companyId": companyID,
			"plan":      in.Plan,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return url, nil
}

func (s *Service) CreatePortalSession(ctx context.Context, companyID string, in CreatePortalInput) (string, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	b, err := s.store.GetBilling(ctx, companyID)
	if err != nil {
		return "", err
	}
	if b.StripeCustomerID == "" {
		return "", fmt.Errorf("%w: no billing account found", ErrBadRequest)
	}

	url, err := s.gateway.CreatePortalSession(b.StripeCustomerID, in.ReturnURL)
	if err != nil {
		return "", fmt.Errorf("failed to create portal session: %w", err)
	}
	return url, nil
}

func (s *Service) GetSubscriptionInfo(ctx context.Context, companyID string) (*SubscriptionInfo, error) {
	b, err := s.store.GetBilling(ctx, companyID)
	if err != nil {
		return nil, err
	}

	status := b.SubscriptionStatus
	if status == "" {
		status = "none"
	}

	cardholders, err := s.store.CountCardholders(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cardholders: %w", err)
	}
	admins, err := s.store.CountAdmins(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}

	plan := b.EffectivePlan()
	limits := GetPlanLimits(plan)
	return &SubscriptionInfo{
		Plan:              plan,
		Status:            status,
		PeriodEnd:         b.PlanPeriodEnd,
		CancelAtPeriodEnd: b.CancelAtPeriodEnd,
		Usage: UsageInfo{
			Cardholders: ResourceUsage{Current: cardholders, Limit: limits.Cardholders},
			Admins:      ResourceUsage{Current: admins, Limit: limits.Admins},
		},
	}, nil
}

func (s *Service) CancelSubscription(ctx context.Context, companyID string) error {
	return s.setCancelAtPeriodEnd(ctx, companyID, true)
}

func (s *Service) ResumeSubscription(ctx context.Context, companyID string) error {
	return s.setCancelAtPeriodEnd(ctx, companyID, false)
}

func (s *Service) setCancelAtPeriodEnd(ctx context.Context, companyID string, cancel bool) error {
	b, err := s.store.GetBilling(ctx, companyID)
	if err != nil {
		return err
	}
	if b.SubscriptionID == "" {
		return fmt.Errorf("%w: no subscription found", ErrBadRequest)
	}

	if err := s.gateway.SetCancelAtPeriodEnd(b.SubscriptionID, cancel); err != nil {
		if cancel {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		return fmt.Errorf("failed to resume subscription: %w", err)
	}

	if err := s.store.UpdateBilling(ctx, companyID, map[string]interface{}{
		"cancelAtPeriodEnd": cancel,
		"updatedAt":         s.now(),
	}); err != nil {
		s.log.Warn("failed to update cancelAtPeriodEnd", zap.String("companyId", companyID), zap.Error(err))
	}
	return nil
}

// CheckPlanLimit returns ErrLimitReached when adding one more resource
// would exceed the company's plan.
func (s *Service) CheckPlanLimit(ctx context.Context, companyID, resource string) error {
	b, err := s.store.GetBilling(ctx, companyID)
	if err != nil {
		return err
	}

	limits := GetPlanLimits(b.EffectivePlan())
	var limit, current int
	switch resource {
	case ResourceCardholder:
		limit = limits.Cardholders
		if limit != Unlimited {
			current, err = s.store.CountCardholders(ctx, companyID)
		}
	case ResourceAdmin:
		limit = limits.Admins
		if limit != Unlimited {
			current, err = s.store.CountAdmins(ctx, companyID)
		}
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to count %ss: %w", resource, err)
	}

	if limit == Unlimited {
		return nil
	}
	if current >= limit {
		return fmt.Errorf("%w: %s limit reached (%d/%d). Upgrade your plan to add more.",
			ErrLimitReached, resource, current, limit)
	}
	return nil
}

func (s *Service) GetPlanFromPriceID(priceID string) string {
	if priceID == "" {
		return PlanFree
	}
	switch priceID {
	case s.config.PriceProMonthly, s.config.PriceProYearly:
		return PlanPro
	case s.config.PriceBusinessMonthly, s.config.PriceBusinessYearly:
		return PlanBusiness
	default:
		return PlanFree
	}
}

func (s *Service) priceFor(plan, period string) string {
	switch {
	case plan == PlanPro && period == "yearly":
		return s.config.PriceProYearly
	case plan == PlanPro:
		return s.config.PriceProMonthly
	case plan == PlanBusiness && period == "yearly":
		return s.config.PriceBusinessYearly
	case plan == PlanBusiness:
		return s.config.PriceBusinessMonthly
	}
	return ""
}
