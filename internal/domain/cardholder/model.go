package cardholder

import (
	"strings"
	"time"
)

// Profile is a cardholder's digital business card, stored at users/{id}.
type Profile struct {
	ID           string            `firestore:"id" json:"id"`
	CompanyID    string            `firestore:"companyId" json:"companyId"`
	Slug         string            `firestore:"slug" json:"slug"`
	FirstName    string            `firestore:"firstName" json:"firstName"`
	LastName     string            `firestore:"lastName" json:"lastName"`
	DisplayName  string            `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	Title        string            `firestore:"title,omitempty" json:"title,omitempty"`
	Organization string            `firestore:"organization,omitempty" json:"organization,omitempty"`
	Department   string            `firestore:"department,omitempty" json:"department,omitempty"`
	Email        string            `firestore:"email" json:"email"`
	Phone        string            `firestore:"phone,omitempty" json:"phone,omitempty"`
	Mobile       string            `firestore:"mobile,omitempty" json:"mobile,omitempty"`
	Website      string            `firestore:"website,omitempty" json:"website,omitempty"`
	Address      string            `firestore:"address,omitempty" json:"address,omitempty"`
	Bio          string            `firestore:"bio,omitempty" json:"bio,omitempty"`
	PhotoURL     string            `firestore:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	Socials      map[string]string `firestore:"socials,omitempty" json:"socials,omitempty"`
	IsActive     bool              `firestore:"isActive" json:"isActive"`
	PasswordHash string            `firestore:"passwordHash,omitempty" json:"-"`
	HasPassword  bool              `firestore:"-" json:"hasPassword"`
	CreatedBy    string            `firestore:"createdBy" json:"createdBy"`
	CreatedAt    time.Time         `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time         `firestore:"updatedAt" json:"updatedAt"`
	LastLoginAt  *time.Time        `firestore:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
}

// Name is the name shown on the card.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PublicProfile is what anonymous visitors see.
type PublicProfile struct {
	Slug         string            `json:"slug"`
	Name         string            `json:"name"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	Title        string            `json:"title,omitempty"`
	Organization string            `json:"organization,omitempty"`
	Department   string            `json:"department,omitempty"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone,omitempty"`
	Mobile       string            `json:"mobile,omitempty"`
	Website      string            `json:"website,omitempty"`
	Address      string            `json:"address,omitempty"`
	Bio          string            `json:"bio,omitempty"`
	PhotoURL     string            `json:"photoUrl,omitempty"`
	Socials      map[string]string `json:"socials,omitempty"`
}

func (p Profile) Public() PublicProfile {
	return PublicProfile{
		Slug:         p.Slug,
		Name:         p.Name(),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Title:        p.Title,
		Organization: p.Organization,
		Department:   p.Department,
		Email:        p.Email,
		Phone:        p.Phone,
		Mobile:       p.Mobile,
		Website:      p.Website,
		Address:      p.Address,
		Bio:          p.Bio,
		PhotoURL:     p.PhotoURL,
		Socials:      p.Socials,
	}
}

type CreateInput struct {
	Slug         string            `json:"slug,omitempty" validate:"omitempty,max=40"`
	FirstName    string            `json:"firstName" validate:"required,max=80"`
	LastName     string            `json:"lastName" validate:"required,max=80"`
	DisplayName  string            `json:"displayName,omitempty" validate:"omitempty,max=120"`
	Title        string            `json:"title,omitempty" validate:"omitempty,max=120"`
	Organization string            `json:"organization,omitempty" validate:"omitempty,max=120"`
	Department   string            `json:"department,omitempty" validate:"omitempty,max=120"`
	Email        string            `json:"email" validate:"required,email,max=254"`
	Phone        string            `json:"phone,omitempty" validate:"omitempty,max=40"`
	Mobile       string            `json:"mobile,omitempty" validate:"omitempty,max=40"`
	Website      string            `json:"website,omitempty" validate:"omitempty,http_url,max=300"`
	Address      string            `json:"address,omitempty" validate:"omitempty,max=300"`
	Bio          string            `json:"bio,omitempty" validate:"omitempty,max=1000"`
	PhotoURL     string            `json:"photoUrl,omitempty" validate:"omitempty,http_url,max=1000"`
	Socials      map[string]string `json:"socials,omitempty" validate:"omitempty,max=12,dive,keys,alpha,max=20,endkeys,http_url,max=300"`
	Password     string            `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

func (in *CreateInput) Trim() {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Title = strings.TrimSpace(in.Title)
	in.Organization = strings.TrimSpace(in.Organization)
	in.Department = strings.TrimSpace(in.Department)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Website = strings.TrimSpace(in.Website)
	in.Address = strings.TrimSpace(in.Address)
	in.Bio = strings.TrimSpace(in.Bio)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.Socials = trimSocials(in.Socials)
}

// UpdateInput is an admin's partial update. Nil fields are left alone; a
// non-nil empty Socials map clears all links.
type UpdateInput struct {
	Slug         *string           `json:"slug,omitempty" validate:"omitempty,max=40"`
	FirstName    *string           `json:"firstName,omitempty" validate:"omitempty,min=1,max=80"`
	LastName     *string           `json:"lastName,omitempty" validate:"omitempty,min=1,max=80"`
	DisplayName  *string           `json:"displayName,omitempty" validate:"omitempty,max=120"`
	Title        *string           `json:"title,omitempty" validate:"omitempty,max=120"`
	Organization *string           `json:"organization,omitempty" validate:"omitempty,max=120"`
	Department   *string           `json:"department,omitempty" validate:"omitempty,max=120"`
	Email        *string           `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone        *string           `json:"phone,omitempty" validate:"omitempty,max=40"`
	Mobile       *string           `json:"mobile,omitempty" validate:"omitempty,max=40"`
	Website      *string           `json:"website,omitempty" validate:"omitempty,http_url,max=300"`
	Address      *string           `json:"address,omitempty" validate:"omitempty,max=300"`
	Bio          *string           `json:"bio,omitempty" validate:"omitempty,max=1000"`
	PhotoURL     *string           `json:"photoUrl,omitempty" validate:"omitempty,http_url,max=1000"`
	Socials      map[string]string `json:"socials,omitempty" validate:"omitempty,max=12,dive,keys,alpha,max=20,endkeys,http_url,max=300"`
}

func (in *UpdateInput) Trim() {
	trimPtr(in.Slug)
	if in.Slug != nil {
		*in.Slug = strings.ToLower(*in.Slug)
	}
	trimPtr(in.FirstName)
	trimPtr(in.LastName)
	trimPtr(in.DisplayName)
	trimPtr(in.Title)
	trimPtr(in.Organization)
	trimPtr(in.Department)
	trimPtr(in.Email)
	if in.Email != nil {
		*in.Email = strings.ToLower(*in.Email)
	}
	trimPtr(in.Phone)
	trimPtr(in.Mobile)
	trimPtr(in.Website)
	trimPtr(in.Address)
	trimPtr(in.Bio)
	trimPtr(in.PhotoURL)
	in.Socials = trimSocials(in.Socials)
}

// SelfUpdateInput is the subset of fields a cardholder may edit.
type SelfUpdateInput struct {
	Title    *string           `json:"title,omitempty" validate:"omitempty,max=120"`
	Phone    *string           `json:"phone,omitempty" validate:"omitempty,max=40"`
	Mobile   *string           `json:"mobile,omitempty" validate:"omitempty,max=40"`
	Website  *string           `json:"website,omitempty" validate:"omitempty,http_url,max=300"`
	Bio      *string           `json:"bio,omitempty" validate:"omitempty,max=1000"`
	PhotoURL *string           `json:"photoUrl,omitempty" validate:"omitempty,http_url,max=1000"`
	Socials  map[string]string `json:"socials,omitempty" validate:"omitempty,max=12,dive,keys,alpha,max=20,endkeys,http_url,max=300"`
}

func (in *SelfUpdateInput) Trim() {
	trimPtr(in.Title)
	trimPtr(in.Phone)
	trimPtr(in.Mobile)
	trimPtr(in.Website)
	trimPtr(in.Bio)
	trimPtr(in.PhotoURL)
	in.Socials = trimSocials(in.Socials)
}

func (in SelfUpdateInput) asUpdate() UpdateInput {
	return UpdateInput{
		Title:    in.Title,
		Phone:    in.Phone,
		Mobile:   in.Mobile,
		Website:  in.Website,
		Bio:      in.Bio,
		PhotoURL: in.PhotoURL,
		Socials:  in.Socials,
	}
}

type ListInput struct {
	ActiveOnly bool `json:"activeOnly,omitempty"`
	Limit      int  `json:"limit,omitempty"`
}

type PasswordInput struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func trimSocials(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
