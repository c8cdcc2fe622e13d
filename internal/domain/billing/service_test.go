package billing_test

import (
	"context"
	"errors"
	"testing"

	"cardlink/backend/internal/domain/billing"
	"cardlink/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = billing.Config{
	WebhookSecret:        "whsec_test",
	PriceProMonthly:      "price_pro_m",
	PriceProYearly:       "price_pro_y",
	PriceBusinessMonthly: "price_biz_m",
}

func newService() (*billing.Service, *testutil.Billing, *testutil.Gateway) {
	store := testutil.NewBilling()
	gw := &testutil.Gateway{}
	return billing.NewService(store, gw, testConfig, nil), store, gw
}

func TestGetPlanLimits(t *testing.T) {
	assert.Equal(t, billing.PlanLimits{Cardholders: 5, Admins: 1}, billing.GetPlanLimits(""))
	assert.Equal(t, billing.PlanLimits{Cardholders: 100, Admins: 5}, billing.GetPlanLimits(billing.PlanPro))
	assert.Equal(t, billing.PlanLimits{Cardholders: billing.Unlimited, Admins: billing.Unlimited}, billing.GetPlanLimits(billing.PlanBusiness))
}

func TestCheckPlanLimit(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.AddCompany("c1", "Acme", "")
	store.AddCompany("c2", "Big", billing.PlanBusiness)

	store.Cardholders["c1"] = 4
	assert.NoError(t, svc.CheckPlanLimit(ctx, "c1", billing.ResourceCardholder))

	store.Cardholders["c1"] = 5
	err := svc.CheckPlanLimit(ctx, "c1", billing.ResourceCardholder)
	assert.True(t, billing.IsErrLimitReached(err))
	assert.ErrorContains(t, err, "(5/5)")

	store.Admins["c1"] = 1
	assert.True(t, billing.IsErrLimitReached(svc.CheckPlanLimit(ctx, "c1", billing.ResourceAdmin)))

	store.Cardholders["c2"] = 10000
	assert.NoError(t, svc.CheckPlanLimit(ctx, "c2", billing.ResourceCardholder))

	assert.NoError(t, svc.CheckPlanLimit(ctx, "c1", "widgets"))
	assert.True(t, billing.IsErrNotFound(svc.CheckPlanLimit(ctx, "missing", billing.ResourceCardholder)))
}

func TestGetPlanFromPriceID(t *testing.T) {
	svc, _, _ := newService()
	assert.Equal(t, billing.PlanPro, svc.GetPlanFromPriceID("price_pro_y"))
	assert.Equal(t, billing.PlanBusiness, svc.GetPlanFromPriceID("price_biz_m"))
	assert.Equal(t, billing.PlanFree, svc.GetPlanFromPriceID("price_unknown"))
	assert.Equal(t, billing.PlanFree, svc.GetPlanFromPriceID(""))
}

func TestCreateCheckoutSession(t *testing.T) {
	svc, store, gw := newService()
	ctx := context.Background()
	store.AddCompany("c1", "Acme", "")

	url, err := svc.CreateCheckoutSession(ctx, "c1", "owner@example.com", billing.CreateCheckoutInput{
		Plan:       " Pro ",
		Period:     "yearly",
		SuccessURL: "https://admin.example.com/billing?ok=1",
		CancelURL:  "https://admin.example.com/billing",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/price_pro_y", url)

	assert.Equal(t, []string{"owner@example.com"}, gw.Customers)
	assert.Equal(t, "cus_1", store.Company("c1").StripeCustomerID)
	require.Len(t, gw.Checkouts, 1)
	assert.Equal(t, "cus_1", gw.Checkouts[0].CustomerID)
	assert.Equal(t, map[string]string{"companyId": "c1", "plan": "pro"}, gw.Checkouts[0].Metadata)

	// existing customer is reused
	_, err = svc.CreateCheckoutSession(ctx, "c1", "owner@example.com", billing.CreateCheckoutInput{
		Plan:       "business",
		Period:     "monthly",
		SuccessURL: "https://admin.example.com/ok",
		CancelURL:  "https://admin.example.com/no",
	})
	require.NoError(t, err)
	assert.Len(t, gw.Customers, 1)
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	svc, store, _ := newService()
	ctx := context.Background()
	store.AddCompany("c1", "Acme", "")

	ok := "https://admin.example.com"
	cases := map[string]billing.CreateCheckoutInput{
		"free plan":        {Plan: "free", Period: "monthly", SuccessURL: ok, CancelURL: ok},
		"bad period":       {Plan: "pro", Period: "weekly", SuccessURL: ok, CancelURL: ok},
		"missing url":      {Plan: "pro", Period: "monthly", CancelURL: ok},
		"unpriced variant": {Plan: "business", Period: "yearly", SuccessURL: ok, CancelURL: ok},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateCheckoutSession(ctx, "c1", "owner@example.com", in)
			assert.True(t, billing.IsErrBadRequest(err), "got %v", err)
		})
	}
}

func TestCreatePortalSession(t *testing.T) {
	svc, store, gw := newService()
	ctx := context.Background()
	store.AddCompany("c1", "Acme", "")

	_, err := svc.CreatePortalSession(ctx, "c1", billing.CreatePortalInput{ReturnURL: "https://admin.example.com"})
	assert.True(t, billing.IsErrBadRequest(err))

	require.NoError(t, store.UpdateBilling(ctx, "c1", map[string]interface{}{"stripeCustomerId": "cus_9"}))
	url, err := svc.CreatePortalSession(ctx, "c1", billing.CreatePortalInput{ReturnURL: "https://admin.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/cus_9", url)
	assert.Equal(t, []string{"cus_9"}, gw.Portals)
}

func TestGetSubscriptionInfo(t *testing.T) {
	svc, store, _ := newService()
	store.AddCompany("c1", "Acme", billing.PlanPro)
	store.Cardholders["c1"] = 12
	store.Admins["c1"] = 2

	info, err := svc.GetSubscriptionInfo(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanPro, info.Plan)
	assert.Equal(t, "none", info.Status)
	assert.Equal(t, billing.ResourceUsage{Current: 12, Limit: 100}, info.Usage.Cardholders)
	assert.Equal(t, billing.ResourceUsage{Current: 2, Limit: 5}, info.Usage.Admins)
}

func TestCancelAndResume(t *testing.T) {
	svc, store, gw := newService()
	ctx := context.Background()
	store.AddCompany("c1", "Acme", billing.PlanPro)

	assert.True(t, billing.IsErrBadRequest(svc.CancelSubscription(ctx, "c1")))

	require.NoError(t, store.UpdateBilling(ctx, "c1", map[string]interface{}{"subscriptionId": "sub_1"}))
	require.NoError(t, svc.CancelSubscription(ctx, "c1"))
	assert.True(t, gw.Cancels["sub_1"])
	assert.True(t, store.Company("c1").CancelAtPeriodEnd)

	require.NoError(t, svc.ResumeSubscription(ctx, "c1"))
	assert.False(t, gw.Cancels["sub_1"])
	assert.False(t, store.Company("c1").CancelAtPeriodEnd)

	gw.Err = errors.New("stripe down")
	assert.ErrorContains(t, svc.CancelSubscription(ctx, "c1"), "failed to cancel subscription")
}
