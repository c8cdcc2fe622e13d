package admin

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store is the persistence the admin service needs.
type Store interface {
	GetAdmin(ctx context.Context, uid string) (*Admin, error)
	PutAdmin(ctx context.Context, a Admin) error
	ListAdmins(ctx context.Context, companyID string) ([]Admin, error)
	GetCompany(ctx context.Context, companyID string) (*Company, error)
	CreateCompany(ctx context.Context, c Company) (*Company, error)
}

type Repo struct {
	fs *firestore.Client
}

func NewRepo(fs *firestore.Client) *Repo {
	return &Repo{fs: fs}
}

func (r *Repo) GetAdmin(ctx context.Context, uid string) (*Admin, error) {
	doc, err := r.fs.Collection("admins").Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: admin not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	var a Admin
	if err := doc.DataTo(&a); err != nil {
		return nil, fmt.Errorf("failed to decode admin: %w", err)
	}
	if a.UID == "" {
		a.UID = uid
	}
	return &a, nil
}

func (r *Repo) PutAdmin(ctx context.Context, a Admin) error {
	_, err := r.fs.Collection("admins").Doc(a.UID).Set(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to save admin: %w", err)
	}
	return nil
}

func (r *Repo) ListAdmins(ctx context.Context, companyID string) ([]Admin, error) {
	iter := r.fs.Collection("admins").
		Where("companyId", "==", companyID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	out := []Admin{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
		var a Admin
		if err := doc.DataTo(&a); err != nil {
			continue
		}
		a.UID = doc.Ref.ID
		out = append(out, a)
	}
	return out, nil
}

func (r *Repo) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	doc, err := r.fs.Collection("companies").Doc(companyID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: company not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	var c Company
	if err := doc.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to decode company: %w", err)
	}
	c.ID = doc.Ref.ID
	return &c, nil
}

func (r *Repo) CreateCompany(ctx context.Context, c Company) (*Company, error) {
	ref := r.fs.Collection("companies").NewDoc()
	c.ID = ref.ID
	if _, err := ref.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return &c, nil
}
