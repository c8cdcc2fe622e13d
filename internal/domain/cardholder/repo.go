package cardholder

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store is the persistence the cardholder service needs. Implementations
// must keep slugs and emails unique across all cardholders and return
// ErrConflict / ErrNotFound accordingly.
type Store interface {
	Create(ctx context.Context, p Profile) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	GetBySlug(ctx context.Context, slug string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, id string, mutate MutateFunc) (*Profile, error)
	TouchLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, companyID string, in ListInput) ([]Profile, error)
}

// MutateFunc edits the current stored profile in place. It may run more
// than once when the write is retried; an error aborts the update.
type MutateFunc func(p *Profile) error

// slugReservation lives at usernames/{slug}.
type slugReservation struct {
	UserID    string    `firestore:"userId"`
	CompanyID string    `firestore:"companyId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) users() *firestore.CollectionRef {
	return r.fs.Collection("users")
}

func (r *Repo) usernames() *firestore.CollectionRef {
	return r.fs.Collection("usernames")
}

// Create writes the profile and reserves its slug in one transaction.
func (r *Repo) Create(ctx context.Context, p Profile) (*Profile, error) {
	ref := r.users().NewDoc()
	p.ID = ref.ID

	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.ensureSlugFree(tx, p.Slug, ""); err != nil {
			return err
		}
		if err := r.ensureEmailFree(tx, p.Email, ""); err != nil {
			return err
		}
		if err := tx.Create(ref, p); err != nil {
			return err
		}
		return tx.Create(r.usernames().Doc(p.Slug), slugReservation{
			UserID:    p.ID,
			CompanyID: p.CompanyID,
			CreatedAt: p.CreatedAt,
		})
	})
	if err != nil {
		if IsErrConflict(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create cardholder: %w", err)
	}

	p.HasPassword = p.PasswordHash != ""
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: cardholder not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cardholder: %w", err)
	}
	return decode(doc)
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*Profile, error) {
	doc, err := r.usernames().Doc(slug).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: profile not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slug: %w", err)
	}
	var res slugReservation
	if err := doc.DataTo(&res); err != nil || res.UserID == "" {
		return nil, fmt.Errorf("%w: profile not found", ErrNotFound)
	}
	return r.Get(ctx, res.UserID)
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	docs, err := r.users().Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to find cardholder: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: cardholder not found", ErrNotFound)
	}
	return decode(docs[0])
}

// Update reads the profile, applies mutate and writes it back in one
// transaction, moving the slug reservation when it changed.
func (r *Repo) Update(ctx context.Context, id string, mutate MutateFunc) (*Profile, error) {
	ref := r.users().Doc(id)

	var out Profile
	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: cardholder not found", ErrNotFound)
		}
		if err != nil {
			return err
		}
		old, err := decode(snap)
		if err != nil {
			return err
		}
		p := *old
		if err := mutate(&p); err != nil {
			return err
		}
		p.ID = id

		slugChanged := old.Slug != p.Slug
		if slugChanged {
			if err := r.ensureSlugFree(tx, p.Slug, p.ID); err != nil {
				return err
			}
		}
		if old.Email != p.Email {
			if err := r.ensureEmailFree(tx, p.Email, p.ID); err != nil {
				return err
			}
		}

		if err := tx.Set(ref, p); err != nil {
			return err
		}
		if slugChanged {
			if old.Slug != "" {
				if err := tx.Delete(r.usernames().Doc(old.Slug)); err != nil {
					return err
				}
			}
			if err := tx.Set(r.usernames().Doc(p.Slug), slugReservation{
				UserID:    p.ID,
				CompanyID: p.CompanyID,
				CreatedAt: p.UpdatedAt,
			}); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		if IsErrConflict(err) || IsErrNotFound(err) || IsErrBadRequest(err) ||
			IsErrForbidden(err) || IsErrUnauthorized(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update cardholder: %w", err)
	}

	out.HasPassword = out.PasswordHash != ""
	return &out, nil
}

// TouchLogin writes lastLoginAt alone so it never overwrites other fields.
func (r *Repo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.users().Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastLoginAt", Value: at},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: cardholder not found", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to stamp login: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ref := r.users().Doc(id)

	err := r.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: cardholder not found", ErrNotFound)
		}
		if err != nil {
			return err
		}
		slug, _ := snap.Data()["slug"].(string)
		if err := tx.Delete(ref); err != nil {
			return err
		}
		if slug != "" {
			return tx.Delete(r.usernames().Doc(slug))
		}
		return nil
	})
	if err != nil {
		if IsErrNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete cardholder: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context, companyID string, in ListInput) ([]Profile, error) {
	q := r.users().Where("companyId", "==", companyID)
	if in.ActiveOnly {
		q = q.Where("isActive", "==", true)
	}

	limit := in.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	q = q.OrderBy("createdAt", firestore.Desc).Limit(limit)

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []Profile{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list cardholders: %w", err)
		}
		p, err := decode(doc)
		if err != nil {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *Repo) ensureSlugFree(tx *firestore.Transaction, slug, ownerID string) error {
	snap, err := tx.Get(r.usernames().Doc(slug))
	if status.Code(err) == codes.NotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if owner, _ := snap.Data()["userId"].(string); ownerID != "" && owner == ownerID {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSlugTaken, slug)
}

func (r *Repo) ensureEmailFree(tx *firestore.Transaction, email, ownerID string) error {
	docs, err := tx.Documents(r.users().Where("email", "==", email).Limit(1)).GetAll()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.Ref.ID != ownerID {
			return fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
	}
	return nil
}

func decode(doc *firestore.DocumentSnapshot) (*Profile, error) {
	var p Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode cardholder: %w", err)
	}
	p.ID = doc.Ref.ID
	p.HasPassword = p.PasswordHash != ""
	return &p, nil
}
