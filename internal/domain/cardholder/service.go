package cardholder

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"cardlink/backend/internal/logging"
	"cardlink/backend/internal/utils"
	"cardlink/backend/internal/validate"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resourceCardholder = "cardholder"

// derived slugs get numbered suffixes on conflict, explicit ones do not.
const maxSlugAttempts = 5

// AnalyticsPurger removes every analytics document recorded for a cardholder.
type AnalyticsPurger interface {
	PurgeUser(ctx context.Context, userID string) error
}

// LimitChecker enforces the company's plan limits.
type LimitChecker interface {
	CheckPlanLimit(ctx context.Context, companyID, resource string) error
}

type Service struct {
	store  Store
	purger AnalyticsPurger
	limits LimitChecker
	policy *bluemonday.Policy
	log    *zap.Logger
	now    func() time.Time

	// dummyHash keeps VerifyPassword timing flat for unknown emails.
	dummyHash []byte
}

func NewService(store Store, log *zap.Logger) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)
	return &Service{
		store:     store,
		policy:    bluemonday.StrictPolicy(),
		log:       logging.OrNop(log),
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}
}

func (s *Service) SetAnalyticsPurger(p AnalyticsPurger) { s.purger = p }

func (s *Service) SetLimitChecker(l LimitChecker) { s.limits = l }

// Create creates a cardholder in the admin's company.
func (s *Service) Create(ctx context.Context, companyID, adminUID string, in CreateInput) (*Profile, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrBadRequest)
	}
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	derived := in.Slug == ""
	slug := in.Slug
	if derived {
		slug = s.deriveSlug(in.FirstName, in.LastName)
	} else if !utils.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: slug must be 3-40 characters of a-z, 0-9 and single dashes", ErrBadRequest)
	}

	if s.limits != nil {
		if err := s.limits.CheckPlanLimit(ctx, companyID, resourceCardholder); err != nil {
			return nil, err
		}
	}

	now := s.now()
	p := Profile{
		CompanyID:    companyID,
		FirstName:    s.clean(in.FirstName),
		LastName:     s.clean(in.LastName),
		DisplayName:  s.clean(in.DisplayName),
		Title:        s.clean(in.Title),
		Organization: s.clean(in.Organization),
		Department:   s.clean(in.Department),
		Email:        in.Email,
		Phone:        s.clean(in.Phone),
		Mobile:       s.clean(in.Mobile),
		Website:      in.Website,
		Address:      s.clean(in.Address),
		Bio:          s.clean(in.Bio),
		PhotoURL:     in.PhotoURL,
		Socials:      in.Socials,
		IsActive:     true,
		CreatedBy:    adminUID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
	}

	for attempt := 1; ; attempt++ {
		p.Slug = slug
		if derived && attempt > 1 {
			p.Slug = withSuffix(slug, attempt)
		}
		out, err := s.store.Create(ctx, p)
		if err == nil {
			s.log.Info("cardholder created",
				zap.String("id", out.ID),
				zap.String("companyId", companyID),
				zap.String("slug", out.Slug))
			return out, nil
		}
		if !errors.Is(err, ErrSlugTaken) || !derived || attempt >= maxSlugAttempts {
			return nil, err
		}
	}
}

// Get returns a cardholder owned by companyID.
func (s *Service) Get(ctx context.Context, companyID, id string) (*Profile, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: cardholder id is required", ErrBadRequest)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(p, companyID); err != nil {
		return nil, err
	}
	return p, nil
}

func ownedBy(p *Profile, companyID string) error {
	if p.CompanyID != companyID {
		return fmt.Errorf("%w: cardholder belongs to another company", ErrForbidden)
	}
	return nil
}

func (s *Service) List(ctx context.Context, companyID string, in ListInput) ([]Profile, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: companyId is required", ErrBadRequest)
	}
	return s.store.List(ctx, companyID, in)
}

// Update applies an admin's partial update.
func (s *Service) Update(ctx context.Context, companyID, id string, in UpdateInput) (*Profile, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if id == "" {
		return nil, fmt.Errorf("%w: cardholder id is required", ErrBadRequest)
	}
	return s.store.Update(ctx, id, func(p *Profile) error {
		if err := ownedBy(p, companyID); err != nil {
			return err
		}
		if err := s.apply(p, in); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		return nil
	})
}

func (s *Service) SetPassword(ctx context.Context, companyID, id string, in PasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if _, err := s.Get(ctx, companyID, id); err != nil {
		return err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}
	_, err = s.store.Update(ctx, id, func(p *Profile) error {
		if err := ownedBy(p, companyID); err != nil {
			return err
		}
		p.PasswordHash = hash
		p.UpdatedAt = s.now()
		return nil
	})
	return err
}

func (s *Service) SetActive(ctx context.Context, companyID, id string, active bool) (*Profile, error) {
	p, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if p.IsActive == active {
		return p, nil
	}
	if active && s.limits != nil {
		if err := s.limits.CheckPlanLimit(ctx, companyID, resourceCardholder); err != nil {
			return nil, err
		}
	}
	return s.store.Update(ctx, id, func(p *Profile) error {
		if err := ownedBy(p, companyID); err != nil {
			return err
		}
		p.IsActive = active
		p.UpdatedAt = s.now()
		return nil
	})
}

// Delete purges the cardholder's analytics, then removes the profile and
// its slug reservation. A failed purge leaves the profile in place so the
// delete can be retried.
func (s *Service) Delete(ctx context.Context, companyID, id string) error {
	if _, err := s.Get(ctx, companyID, id); err != nil {
		return err
	}
	if s.purger != nil {
		if err := s.purger.PurgeUser(ctx, id); err != nil {
			return fmt.Errorf("failed to purge analytics: %w", err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("cardholder deleted", zap.String("id", id), zap.String("companyId", companyID))
	return nil
}

// GetPublic resolves an active cardholder by slug.
func (s *Service) GetPublic(ctx context.Context, slug string) (*Profile, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrBadRequest)
	}
	p, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: profile not found", ErrNotFound)
	}
	return p, nil
}

// GetSelf returns the signed-in cardholder's own profile.
func (s *Service) GetSelf(ctx context.Context, id string) (*Profile, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}
	return p, nil
}

func (s *Service) UpdateSelf(ctx context.Context, id string, in SelfUpdateInput) (*Profile, error) {
	in.Trim()
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	return s.store.Update(ctx, id, func(p *Profile) error {
		if !p.IsActive {
			return fmt.Errorf("%w: account is disabled", ErrUnauthorized)
		}
		if err := s.apply(p, in.asUpdate()); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		return nil
	})
}

// VerifyPassword checks a cardholder's email/password pair.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (*Profile, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrBadRequest)
	}

	p, err := s.store.FindByEmail(ctx, email)
	if err != nil && !IsErrNotFound(err) {
		return nil, err
	}
	if p == nil || p.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}
	return p, nil
}

// RecordLogin stamps lastLoginAt without touching any other field.
func (s *Service) RecordLogin(ctx context.Context, id string) error {
	return s.store.TouchLogin(ctx, id, s.now())
}

func (s *Service) apply(p *Profile, in UpdateInput) error {
	if in.Slug != nil && *in.Slug != p.Slug {
		if !utils.ValidSlug(*in.Slug) {
			return fmt.Errorf("%w: slug must be 3-40 characters of a-z, 0-9 and single dashes", ErrBadRequest)
		}
		p.Slug = *in.Slug
	}
	if in.FirstName != nil {
		if *in.FirstName == "" {
			return fmt.Errorf("%w: firstName cannot be empty", ErrBadRequest)
		}
		p.FirstName = s.clean(*in.FirstName)
	}
	if in.LastName != nil {
		if *in.LastName == "" {
			return fmt.Errorf("%w: lastName cannot be empty", ErrBadRequest)
		}
		p.LastName = s.clean(*in.LastName)
	}
	if in.Email != nil {
		if *in.Email == "" {
			return fmt.Errorf("%w: email cannot be empty", ErrBadRequest)
		}
		p.Email = *in.Email
	}
	setClean := func(dst *string, v *string) {
		if v != nil {
			*dst = s.clean(*v)
		}
	}
	setClean(&p.DisplayName, in.DisplayName)
	setClean(&p.Title, in.Title)
	setClean(&p.Organization, in.Organization)
	setClean(&p.Department, in.Department)
	setClean(&p.Phone, in.Phone)
	setClean(&p.Mobile, in.Mobile)
	setClean(&p.Address, in.Address)
	setClean(&p.Bio, in.Bio)
	if in.Website != nil {
		p.Website = *in.Website
	}
	if in.PhotoURL != nil {
		p.PhotoURL = *in.PhotoURL
	}
	if in.Socials != nil {
		if len(in.Socials) == 0 {
			p.Socials = nil
		} else {
			p.Socials = in.Socials
		}
	}
	return nil
}

// clean strips markup from free text. bluemonday escapes entities, which
// are turned back into plain characters for storage.
func (s *Service) clean(v string) string {
	if v == "" {
		return v
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *Service) deriveSlug(first, last string) string {
	slug := utils.Slugify(first + " " + last)
	if !utils.ValidSlug(slug) {
		slug = "card-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	}
	return slug
}

func withSuffix(slug string, n int) string {
	suffix := fmt.Sprintf("-%d", n)
	if len(slug)+len(suffix) > utils.SlugMaxLen {
		slug = strings.TrimRight(slug[:utils.SlugMaxLen-len(suffix)], "-")
	}
	return slug + suffix
}

// maxPasswordBytes is bcrypt's input limit; validator counts runes.
const maxPasswordBytes = 72

func hashPassword(pw string) (string, error) {
	if len(pw) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrBadRequest, maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
