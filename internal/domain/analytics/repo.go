package analytics

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	viewEventsCol        = "viewEvents"
	contactSaveEventsCol = "contactSaveEvents"
	dailyViewsCol        = "userDailyViews"
)

// Store persists analytics events and rollups.
type Store interface {
	AddView(ctx context.Context, ev ViewEvent) error
	AddContactSave(ctx context.Context, ev ContactSaveEvent) error
	IncrementDaily(ctx context.Context, t Target, date, field string) error
	ListViews(ctx context.Context, userID string, from, to time.Time) ([]ViewEvent, error)
	ListContactSaves(ctx context.Context, userID string, from, to time.Time) ([]ContactSaveEvent, error)
	ListDailyViews(ctx context.Context, companyID, fromDate, toDate string) ([]DailyViews, error)
	DeleteUser(ctx context.Context, userID string) (DeleteResult, error)
}

// Rollup counter fields.
const (
	FieldViews        = "views"
	FieldContactSaves = "contactSaves"
)

type Repo struct {
	client *firestore.Client
}

func NewRepo(client *firestore.Client) *Repo {
	return &Repo{client: client}
}

func (r *Repo) AddView(ctx context.Context, ev ViewEvent) error {
	if _, _, err := r.client.Collection(viewEventsCol).Add(ctx, ev); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

func (r *Repo) AddContactSave(ctx context.Context, ev ContactSaveEvent) error {
	if _, _, err := r.client.Collection(contactSaveEventsCol).Add(ctx, ev); err != nil {
		return fmt.Errorf("failed to record contact save: %w", err)
	}
	return nil
}

func DailyDocID(userID, date string) string {
	return userID + "_" + date
}

func (r *Repo) IncrementDaily(ctx context.Context, t Target, date, field string) error {
	ref := r.client.Collection(dailyViewsCol).Doc(DailyDocID(t.UserID, date))
	_, err := ref.Set(ctx, map[string]interface{}{
		"userId":    t.UserID,
		"companyId": t.CompanyID,
		"date":      date,
		field:       firestore.Increment(1),
		"updatedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to increment %s rollup: %w", field, err)
	}
	return nil
}

func (r *Repo) ListViews(ctx context.Context, userID string, from, to time.Time) ([]ViewEvent, error) {
	iter := r.client.Collection(viewEventsCol).
		Where("userId", "==", userID).
		Where("timestamp", ">=", from).
		Where("timestamp", "<", to).
		Documents(ctx)
	defer iter.Stop()

	var out []ViewEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list views: %w", err)
		}
		var ev ViewEvent
		if err := doc.DataTo(&ev); err != nil {
			continue
		}
		ev.ID = doc.Ref.ID
		out = append(out, ev)
	}
	return out, nil
}

func (r *Repo) ListContactSaves(ctx context.Context, userID string, from, to time.Time) ([]ContactSaveEvent, error) {
	iter := r.client.Collection(contactSaveEventsCol).
		Where("userId", "==", userID).
		Where("timestamp", ">=", from).
		Where("timestamp", "<", to).
		Documents(ctx)
	defer iter.Stop()

	var out []ContactSaveEvent
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list contact saves: %w", err)
		}
		var ev ContactSaveEvent
		if err := doc.DataTo(&ev); err != nil {
			continue
		}
		ev.ID = doc.Ref.ID
		out = append(out, ev)
	}
	return out, nil
}

// ListDailyViews returns rollups with fromDate <= date <= toDate.
func (r *Repo) ListDailyViews(ctx context.Context, companyID, fromDate, toDate string) ([]DailyViews, error) {
	iter := r.client.Collection(dailyViewsCol).
		Where("companyId", "==", companyID).
		Where("date", ">=", fromDate).
		Where("date", "<=", toDate).
		Documents(ctx)
	defer iter.Stop()

	var out []DailyViews
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list daily views: %w", err)
		}
		var d DailyViews
		if err := doc.DataTo(&d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// DeleteUser removes every event and rollup of a cardholder, committing
// one batch per batchLimit documents.
func (r *Repo) DeleteUser(ctx context.Context, userID string) (DeleteResult, error) {
	var res DeleteResult
	counts := []struct {
		col string
		n   *int
	}{
		{viewEventsCol, &res.ViewEvents},
		{contactSaveEventsCol, &res.ContactSaveEvents},
		{dailyViewsCol, &res.DailyViews},
	}
	for _, c := range counts {
		refs, err := r.userRefs(ctx, c.col, userID)
		if err != nil {
			return res, err
		}
		for _, chunk := range Chunk(refs, batchLimit) {
			batch := r.client.Batch()
			for _, ref := range chunk {
				batch.Delete(ref)
			}
			if _, err := batch.Commit(ctx); err != nil {
				return res, fmt.Errorf("failed to delete %s: %w", c.col, err)
			}
			*c.n += len(chunk)
		}
	}
	return res, nil
}

func (r *Repo) userRefs(ctx context.Context, col, userID string) ([]*firestore.DocumentRef, error) {
	iter := r.client.Collection(col).Where("userId", "==", userID).Select().Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", col, err)
		}
		refs = append(refs, doc.Ref)
	}
	return refs, nil
}
