package admin

import (
	"strings"
	"time"
)

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// Admin is a Firebase Auth user allowed to manage one company's cardholders.
// Stored at admins/{uid}.
type Admin struct {
	UID         string    `firestore:"uid" json:"uid"`
	Email       string    `firestore:"email" json:"email"`
	DisplayName string    `firestore:"displayName,omitempty" json:"displayName,omitempty"`
	CompanyID   string    `firestore:"companyId" json:"companyId"`
	Role        string    `firestore:"role" json:"role"`
	IsActive    bool      `firestore:"isActive" json:"isActive"`
	CreatedBy   string    `firestore:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updatedAt"`
}

func (a Admin) IsOwner() bool { return a.Role == RoleOwner }

// Company is a tenant. Billing fields are written by the billing webhook.
type Company struct {
	ID                 string    `firestore:"id" json:"id"`
	Name               string    `firestore:"name" json:"name"`
	Plan               string    `firestore:"plan" json:"plan"`
	SubscriptionStatus string    `firestore:"subscriptionStatus,omitempty" json:"subscriptionStatus,omitempty"`
	CreatedBy          string    `firestore:"createdBy" json:"createdBy"`
	CreatedAt          time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt" json:"updatedAt"`
}

type AddAdminInput struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	DisplayName string `json:"displayName,omitempty" validate:"omitempty,max=120"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=owner admin"`
}

func (in *AddAdminInput) Trim() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Role = strings.TrimSpace(in.Role)
}
