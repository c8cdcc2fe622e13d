package billing

import (
	"strings"
	"time"
)

// Plan types
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Limited resources
const (
	ResourceCardholder = "cardholder"
	ResourceAdmin      = "admin"
)

// Unlimited marks a resource without a cap.
const Unlimited = -1

// PlanLimits defines the limits for each plan
type PlanLimits struct {
	Cardholders int
	Admins      int
}

// GetPlanLimits returns the limits for a given plan
func GetPlanLimits(plan string) PlanLimits {
	switch plan {
	case PlanPro:
		return PlanLimits{Cardholders: 100, Admins: 5}
	case PlanBusiness:
		return PlanLimits{Cardholders: Unlimited, Admins: Unlimited}
	default: // free
		return PlanLimits{Cardholders: 5, Admins: 1}
	}
}

// ResourceUsage represents current usage and limit for a resource
type ResourceUsage struct {
	Current int `json:"current"`
	Limit   int `json:"limit"` // -1 = unlimited
}

type UsageInfo struct {
	Cardholders ResourceUsage `json:"cardholders"`
	Admins      ResourceUsage `json:"admins"`
}

// SubscriptionInfo contains subscription details
type SubscriptionInfo struct {
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	PeriodEnd         *time.Time `json:"periodEnd,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
	Usage             UsageInfo  `json:"usage"`
}

// CreateCheckoutInput is the input for creating a checkout session
type CreateCheckoutInput struct {
	Plan       string `json:"plan" validate:"required,oneof=pro business"`
	Period     string `json:"period" validate:"required,oneof=monthly yearly"`
	SuccessURL string `json:"successUrl" validate:"required,http_url"`
	CancelURL  string `json:"cancelUrl" validate:"required,http_url"`
}

func (i *CreateCheckoutInput) Trim() {
	i.Plan = strings.ToLower(strings.TrimSpace(i.Plan))
	i.Period = strings.ToLower(strings.TrimSpace(i.Period))
	i.SuccessURL = strings.TrimSpace(i.SuccessURL)
	i.CancelURL = strings.TrimSpace(i.CancelURL)
}

type CreatePortalInput struct {
	ReturnURL string `json:"returnUrl" validate:"required,http_url"`
}

func (i *CreatePortalInput) Trim() {
	i.ReturnURL = strings.TrimSpace(i.ReturnURL)
}

// CompanyBilling is the billing state kept on companies/{id}.
type CompanyBilling struct {
	CompanyID          string     `firestore:"-" json:"companyId"`
	Name               string     `firestore:"name" json:"name"`
	Plan               string     `firestore:"plan" json:"plan"`
	SubscriptionID     string     `firestore:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	SubscriptionStatus string     `firestore:"subscriptionStatus,omitempty" json:"subscriptionStatus,omitempty"`
	StripeCustomerID   string     `firestore:"stripeCustomerId,omitempty" json:"stripeCustomerId,omitempty"`
	PlanPeriodEnd      *time.Time `firestore:"planPeriodEnd,omitempty" json:"planPeriodEnd,omitempty"`
	CancelAtPeriodEnd  bool       `firestore:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
}

// EffectivePlan treats an empty plan as free.
func (b CompanyBilling) EffectivePlan() string {
	if b.Plan == "" {
		return PlanFree
	}
	return b.Plan
}

// Payment represents a payment record
type Payment struct {
	ID             string    `firestore:"-" json:"id"`
	InvoiceID      string    `firestore:"invoiceId" json:"invoiceId"`
	SubscriptionID string    `firestore:"subscriptionId" json:"subscriptionId"`
	Amount         int64     `firestore:"amount" json:"amount"`
	Currency       string    `firestore:"currency" json:"currency"`
	Status         string    `firestore:"status" json:"status"`
	InvoiceURL     string    `firestore:"invoiceUrl,omitempty" json:"invoiceUrl,omitempty"`
	InvoicePDF     string    `firestore:"invoicePdf,omitempty" json:"invoicePdf,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt" json:"createdAt"`
}

// SubscriptionEvent is an audit entry under companies/{id}/subscriptionEvents.
type SubscriptionEvent struct {
	ID                string    `firestore:"-" json:"id"`
	Type              string    `firestore:"type" json:"type"`
	SubscriptionID    string    `firestore:"subscriptionId" json:"subscriptionId"`
	Status            string    `firestore:"status" json:"status"`
	Plan              string    `firestore:"plan" json:"plan"`
	PriceID           string    `firestore:"priceId,omitempty" json:"priceId,omitempty"`
	PeriodEnd         time.Time `firestore:"periodEnd,omitempty" json:"periodEnd,omitempty"`
	CancelAtPeriodEnd bool      `firestore:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	CreatedAt         time.Time `firestore:"createdAt" json:"createdAt"`
}

func unixUTC(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
