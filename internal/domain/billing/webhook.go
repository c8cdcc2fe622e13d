package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"cardlink/backend/internal/httpjson"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBytes = int64(65536)

// HandleWebhook verifies and processes incoming Stripe webhooks. Handler
// failures are logged and acknowledged so Stripe does not retry forever.
func (s *Service) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Warn("webhook: error reading request body", zap.Error(err))
		httpjson.Error(w, http.StatusServiceUnavailable, "error reading request body")
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.config.WebhookSecret)
	if err != nil {
		s.log.Warn("webhook: signature verification failed", zap.Error(err))
		httpjson.Error(w, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	s.log.Info("webhook: received event", zap.String("type", string(event.Type)), zap.String("id", event.ID))

	if err := s.HandleEvent(r.Context(), event); err != nil {
		if IsErrBadRequest(err) {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("webhook: handler failed",
			zap.String("type", string(event.Type)),
			zap.String("id", event.ID),
			zap.Error(err))
	}

	httpjson.OK(w, http.StatusOK, map[string]bool{"received": true})
}

// HandleEvent applies a verified event to company billing state. Only
// malformed payloads return ErrBadRequest.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("%w: error parsing checkout session: %v", ErrBadRequest, err)
		}
		return s.handleCheckoutCompleted(ctx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: error parsing subscription: %v", ErrBadRequest, err)
		}
		kind := "subscription_updated"
		if event.Type == "customer.subscription.created" {
			kind = "subscription_created"
		}
		return s.handleSubscriptionChanged(ctx, kind, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("%w: error parsing subscription: %v", ErrBadRequest, err)
		}
		return s.handleSubscriptionDeleted(ctx, &sub)

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("%w: error parsing invoice: %v", ErrBadRequest, err)
		}
		return s.handlePaymentSucceeded(ctx, &invoice)

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("%w: error parsing invoice: %v", ErrBadRequest, err)
		}
		return s.handlePaymentFailed(ctx, &invoice)

	default:
		s.log.Debug("webhook: unhandled event type", zap.String("type", string(event.Type)))
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	companyID := session.Metadata["companyId"]
	if companyID == "" {
		return fmt.Errorf("missing companyId in metadata")
	}

	fields := map[string]interface{}{"updatedAt": s.now()}
	if session.Customer != nil {
		fields["stripeCustomerId"] = session.Customer.ID
	}
	if session.Subscription != nil {
		fields["subscriptionId"] = session.Subscription.ID
	}

	s.log.Info("webhook: checkout completed", zap.String("companyId", companyID))

	// the subscription events fill in plan and status
	return s.store.UpdateBilling(ctx, companyID, fields)
}

func (s *Service) handleSubscriptionChanged(ctx context.Context, kind string, sub *stripe.Subscription) error {
	companyID := s.companyFor(ctx, sub.Metadata["companyId"], sub.ID, customerID(sub.Customer))
	if companyID == "" {
		return fmt.Errorf("could not find company for subscription %s", sub.ID)
	}

	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	plan := s.GetPlanFromPriceID(priceID)
	periodEnd := unixUTC(sub.CurrentPeriodEnd)

	s.log.Info("webhook: subscription changed",
		zap.String("companyId", companyID),
		zap.String("kind", kind),
		zap.String("plan", plan),
		zap.String("status", string(sub.Status)),
		zap.Bool("cancelAtPeriodEnd", sub.CancelAtPeriodEnd))

	err := s.store.UpdateBilling(ctx, companyID, map[string]interface{}{
		"subscriptionId":      sub.ID,
		"subscriptionStatus":  string(sub.Status),
		"subscriptionPriceId": priceID,
		"plan":                plan,
		"planPeriodEnd":       periodEnd,
		"cancelAtPeriodEnd":   sub.CancelAtPeriodEnd,
		"updatedAt":           s.now(),
	})
	if err != nil {
		return err
	}

	s.recordSubscriptionEvent(ctx, companyID, SubscriptionEvent{
		Type:              kind,
		SubscriptionID:    sub.ID,
		Status:            string(sub.Status),
		Plan:              plan,
		PriceID:           priceID,
		PeriodEnd:         periodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CreatedAt:         s.now(),
	})
	return nil
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	companyID := s.companyFor(ctx, sub.Metadata["companyId"], sub.ID, customerID(sub.Customer))
	if companyID == "" {
		return fmt.Errorf("could not find company for subscription %s", sub.ID)
	}

	s.log.Info("webhook: subscription deleted", zap.String("companyId", companyID))

	// back to free
	err := s.store.UpdateBilling(ctx, companyID, map[string]interface{}{
		"subscriptionId":      nil,
		"subscriptionStatus":  "canceled",
		"subscriptionPriceId": nil,
		"plan":                PlanFree,
		"planPeriodEnd":       nil,
		"cancelAtPeriodEnd":   false,
		"updatedAt":           s.now(),
	})
	if err != nil {
		return err
	}

	s.recordSubscriptionEvent(ctx, companyID, SubscriptionEvent{
		Type:           "subscription_deleted",
		SubscriptionID: sub.ID,
		Status:         string(sub.Status),
		Plan:           PlanFree,
		CreatedAt:      s.now(),
	})
	return nil
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Subscription == nil {
		return nil // not a subscription invoice
	}

	companyID := s.companyFor(ctx, invoice.Metadata["companyId"], invoice.Subscription.ID, customerID(invoice.Customer))
	if companyID == "" {
		return fmt.Errorf("could not find company for subscription %s", invoice.Subscription.ID)
	}

	s.log.Info("webhook: payment succeeded", zap.String("companyId", companyID), zap.Int64("amount", invoice.AmountPaid))

	return s.store.AddPayment(ctx, companyID, Payment{
		InvoiceID:      invoice.ID,
		SubscriptionID: invoice.Subscription.ID,
		Amount:         invoice.AmountPaid,
		Currency:       string(invoice.Currency),
		Status:         "succeeded",
		InvoiceURL:     invoice.HostedInvoiceURL,
		InvoicePDF:     invoice.InvoicePDF,
		CreatedAt:      s.now(),
	})
}

func (s *Service) handlePaymentFailed(ctx context.Context, invoice *stripe.Invoice) error {
	if invoice.Subscription == nil {
		return nil
	}

	companyID := s.companyFor(ctx, invoice.Metadata["companyId"], invoice.Subscription.ID, customerID(invoice.Customer))
	if companyID == "" {
		s.log.Warn("webhook: payment failed for unknown company", zap.String("subscriptionId", invoice.Subscription.ID))
		return nil
	}

	s.log.Warn("webhook: payment failed", zap.String("companyId", companyID), zap.Int64("amount", invoice.AmountDue))

	if err := s.store.AddPayment(ctx, companyID, Payment{
		InvoiceID:      invoice.ID,
		SubscriptionID: invoice.Subscription.ID,
		Amount:         invoice.AmountDue,
		Currency:       string(invoice.Currency),
		Status:         "failed",
		InvoiceURL:     invoice.HostedInvoiceURL,
		CreatedAt:      s.now(),
	}); err != nil {
		s.log.Warn("webhook: failed to record payment", zap.String("companyId", companyID), zap.Error(err))
	}

	return s.store.UpdateBilling(ctx, companyID, map[string]interface{}{
		"subscriptionStatus": "past_due",
		"updatedAt":          s.now(),
	})
}

// companyFor resolves the company from metadata, then subscription, then customer.
func (s *Service) companyFor(ctx context.Context, fromMetadata, subscriptionID, customerID string) string {
	if fromMetadata != "" {
		return fromMetadata
	}
	if id := s.store.FindBySubscription(ctx, subscriptionID); id != "" {
		return id
	}
	return s.store.FindByCustomer(ctx, customerID)
}

func (s *Service) recordSubscriptionEvent(ctx context.Context, companyID string, ev SubscriptionEvent) {
	if err := s.store.AddSubscriptionEvent(ctx, companyID, ev); err != nil {
		s.log.Warn("webhook: failed to record subscription event", zap.String("companyId", companyID), zap.Error(err))
	}
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
