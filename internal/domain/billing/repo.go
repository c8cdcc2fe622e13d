package billing

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const companiesCol = "companies"

// Store reads and writes billing state on company documents.
type Store interface {
	GetBilling(ctx context.Context, companyID string) (*CompanyBilling, error)
	UpdateBilling(ctx context.Context, companyID string, fields map[string]interface{}) error
	FindBySubscription(ctx context.Context, subscriptionID string) string
	FindByCustomer(ctx context.Context, customerID string) string
	CountCardholders(ctx context.Context, companyID string) (int, error)
	CountAdmins(ctx context.Context, companyID string) (int, error)
	AddPayment(ctx context.Context, companyID string, p Payment) error
	AddSubscriptionEvent(ctx context.Context, companyID string, ev SubscriptionEvent) error
}

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) GetBilling(ctx context.Context, companyID string) (*CompanyBilling, error) {
	doc, err := r.fs.Collection(companiesCol).Doc(companyID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: company not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	var b CompanyBilling
	if err := doc.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to decode company: %w", err)
	}
	b.CompanyID = doc.Ref.ID
	return &b, nil
}

func (r *Repo) UpdateBilling(ctx context.Context, companyID string, fields map[string]interface{}) error {
	_, err := r.fs.Collection(companiesCol).Doc(companyID).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

func (r *Repo) FindBySubscription(ctx context.Context, subscriptionID string) string {
	return r.findOne(ctx, "subscriptionId", subscriptionID)
}

func (r *Repo) FindByCustomer(ctx context.Context, customerID string) string {
	return r.findOne(ctx, "stripeCustomerId", customerID)
}

func (r *Repo) findOne(ctx context.Context, field, value string) string {
	if value == "" {
		return ""
	}
	docs, err := r.fs.Collection(companiesCol).Where(field, "==", value).Limit(1).Documents(ctx).GetAll()
	if err != nil || len(docs) == 0 {
		return ""
	}
	return docs[0].Ref.ID
}

// CountCardholders counts active cardholders.
func (r *Repo) CountCardholders(ctx context.Context, companyID string) (int, error) {
	iter := r.fs.Collection("users").
		Where("companyId", "==", companyID).
		Where("isActive", "==", true).
		Select().
		Documents(ctx)
	return countDocs(iter)
}

// CountAdmins counts active admins.
func (r *Repo) CountAdmins(ctx context.Context, companyID string) (int, error) {
	iter := r.fs.Collection("admins").
		Where("companyId", "==", companyID).
		Where("isActive", "==", true).
		Select().
		Documents(ctx)
	return countDocs(iter)
}

func (r *Repo) AddPayment(ctx context.Context, companyID string, p Payment) error {
	ref := r.fs.Collection(companiesCol).Doc(companyID).Collection("payments").NewDoc()
	p.ID = ref.ID
	if _, err := ref.Set(ctx, p); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	return nil
}

func (r *Repo) AddSubscriptionEvent(ctx context.Context, companyID string, ev SubscriptionEvent) error {
	ref := r.fs.Collection(companiesCol).Doc(companyID).Collection("subscriptionEvents").NewDoc()
	ev.ID = ref.ID
	if _, err := ref.Set(ctx, ev); err != nil {
		return fmt.Errorf("failed to record subscription event: %w", err)
	}
	return nil
}

func countDocs(iter *firestore.DocumentIterator) (int, error) {
	defer iter.Stop()
	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
