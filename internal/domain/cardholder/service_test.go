package cardholder_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cardlink/backend/internal/domain/cardholder"
	"cardlink/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type purger struct {
	calls []string
	err   error
	store *testutil.Cardholders
	// profile count observed when PurgeUser ran
	seen int
}

func (p *purger) PurgeUser(_ context.Context, userID string) error {
	p.calls = append(p.calls, userID)
	p.seen = p.store.Len()
	return p.err
}

type limiter struct {
	err   error
	calls int
}

func (l *limiter) CheckPlanLimit(_ context.Context, _, resource string) error {
	l.calls++
	if resource != "cardholder" {
		return fmt.Errorf("unexpected resource %q", resource)
	}
	return l.err
}

func newService(t *testing.T) (*cardholder.Service, *testutil.Cardholders) {
	t.Helper()
	store := testutil.NewCardholders()
	return cardholder.NewService(store, nil), store
}

func createInput(first, last, email string) cardholder.CreateInput {
	return cardholder.CreateInput{FirstName: first, LastName: last, Email: email}
}

func TestCreateDerivesSlug(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "admin1", createInput("  Zoë ", "O'Brien", "Zoe@Example.com "))
	require.NoError(t, err)

	assert.Equal(t, "zoe-obrien", p.Slug)
	assert.Equal(t, "zoe@example.com", p.Email)
	assert.Equal(t, "c1", p.CompanyID)
	assert.Equal(t, "admin1", p.CreatedBy)
	assert.True(t, p.IsActive)
	assert.False(t, p.HasPassword)
}

func TestCreateSuffixesDerivedSlugOnConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane1@example.com"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane2@example.com"))
	require.NoError(t, err)
	third, err := svc.Create(ctx, "c2", "a", createInput("Jane", "Doe", "jane3@example.com"))
	require.NoError(t, err)

	assert.Equal(t, "jane-doe", first.Slug)
	assert.Equal(t, "jane-doe-2", second.Slug)
	assert.Equal(t, "jane-doe-3", third.Slug)
}

func TestCreateExplicitSlugConflict(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := createInput("Jane", "Doe", "jane@example.com")
	in.Slug = "jane"
	_, err := svc.Create(ctx, "c1", "a", in)
	require.NoError(t, err)

	in.Email = "other@example.com"
	_, err = svc.Create(ctx, "c1", "a", in)
	assert.True(t, errors.Is(err, cardholder.ErrSlugTaken))
	assert.True(t, cardholder.IsErrConflict(err))
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "c1", "a", createInput("John", "Roe", "JANE@example.com"))
	assert.True(t, errors.Is(err, cardholder.ErrEmailTaken))
	assert.Equal(t, 1, store.Len())
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := map[string]cardholder.CreateInput{
		"missing first name": createInput("", "Doe", "jane@example.com"),
		"bad email":          createInput("Jane", "Doe", "not-an-email"),
		"short password":     {FirstName: "Jane", LastName: "Doe", Email: "j@example.com", Password: "short"},
		"reserved slug":      {FirstName: "Jane", LastName: "Doe", Email: "j@example.com", Slug: "admin"},
		"bad slug":           {FirstName: "Jane", LastName: "Doe", Email: "j@example.com", Slug: "a--b"},
		"bad website":        {FirstName: "Jane", LastName: "Doe", Email: "j@example.com", Website: "ftp://x"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, "c1", "a", in)
			assert.True(t, cardholder.IsErrBadRequest(err), "got %v", err)
		})
	}

	_, err := svc.Create(ctx, "", "a", createInput("Jane", "Doe", "jane@example.com"))
	assert.True(t, cardholder.IsErrBadRequest(err))
}

func TestCreateStripsMarkup(t *testing.T) {
	svc, _ := newService(t)

	in := createInput("Jane", "Doe", "jane@example.com")
	in.Bio = `<script>alert(1)</script>Tom & Jerry <b>fan</b>`
	in.Title = "R&D Lead"
	p, err := svc.Create(context.Background(), "c1", "a", in)
	require.NoError(t, err)

	assert.Equal(t, "Tom & Jerry fan", p.Bio)
	assert.Equal(t, "R&D Lead", p.Title)
}

func TestCreateChecksPlanLimit(t *testing.T) {
	svc, store := newService(t)
	lim := &limiter{err: errors.New("limit reached")}
	svc.SetLimitChecker(lim)

	_, err := svc.Create(context.Background(), "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	assert.EqualError(t, err, "limit reached")
	assert.Equal(t, 1, lim.calls)
	assert.Equal(t, 0, store.Len())
}

func TestGetScopesToCompany(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "c1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Get(ctx, "c2", p.ID)
	assert.True(t, cardholder.IsErrForbidden(err))

	_, err = svc.Get(ctx, "c1", "missing")
	assert.True(t, cardholder.IsErrNotFound(err))
}

func TestUpdate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	title := " CTO "
	slug := "Jane-D"
	out, err := svc.Update(ctx, "c1", p.ID, cardholder.UpdateInput{
		Title:   &title,
		Slug:    &slug,
		Socials: map[string]string{"LinkedIn": "https://linkedin.com/in/jane"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CTO", out.Title)
	assert.Equal(t, "jane-d", out.Slug)
	assert.Equal(t, map[string]string{"linkedin": "https://linkedin.com/in/jane"}, out.Socials)

	out, err = svc.Update(ctx, "c1", p.ID, cardholder.UpdateInput{Socials: map[string]string{}})
	require.NoError(t, err)
	assert.Nil(t, out.Socials)

	empty := ""
	_, err = svc.Update(ctx, "c1", p.ID, cardholder.UpdateInput{Email: &empty})
	assert.True(t, cardholder.IsErrBadRequest(err))

	_, err = svc.Update(ctx, "c2", p.ID, cardholder.UpdateInput{Title: &title})
	assert.True(t, cardholder.IsErrForbidden(err))
}

func TestSetActive(t *testing.T) {
	svc, _ := newService(t)
	lim := &limiter{}
	svc.SetLimitChecker(lim)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)
	require.Equal(t, 1, lim.calls)

	out, err := svc.SetActive(ctx, "c1", p.ID, false)
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	assert.Equal(t, 1, lim.calls)

	_, err = svc.GetPublic(ctx, p.Slug)
	assert.True(t, cardholder.IsErrNotFound(err))

	lim.err = errors.New("limit reached")
	_, err = svc.SetActive(ctx, "c1", p.ID, true)
	assert.EqualError(t, err, "limit reached")

	lim.err = nil
	out, err = svc.SetActive(ctx, "c1", p.ID, true)
	require.NoError(t, err)
	assert.True(t, out.IsActive)

	got, err := svc.GetPublic(ctx, strings.ToUpper(p.Slug))
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestDeletePurgesAnalyticsFirst(t *testing.T) {
	svc, store := newService(t)
	pg := &purger{store: store}
	svc.SetAnalyticsPurger(pg)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "c2", p.ID)
	assert.True(t, cardholder.IsErrForbidden(err))
	assert.Empty(t, pg.calls)

	require.NoError(t, svc.Delete(ctx, "c1", p.ID))
	assert.Equal(t, []string{p.ID}, pg.calls)
	assert.Equal(t, 1, pg.seen)
	assert.Equal(t, 0, store.Len())

	// slug is free again
	again, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "jane-doe", again.Slug)
}

func TestDeleteKeepsProfileWhenPurgeFails(t *testing.T) {
	svc, store := newService(t)
	svc.SetAnalyticsPurger(&purger{store: store, err: errors.New("firestore down")})
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	err = svc.Delete(ctx, "c1", p.ID)
	assert.ErrorContains(t, err, "firestore down")
	assert.Equal(t, 1, store.Len())
}

func TestVerifyPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := createInput("Jane", "Doe", "jane@example.com")
	in.Password = "correct horse"
	p, err := svc.Create(ctx, "c1", "a", in)
	require.NoError(t, err)
	assert.True(t, p.HasPassword)
	assert.NotEqual(t, "correct horse", p.PasswordHash)

	got, err := svc.VerifyPassword(ctx, " JANE@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.VerifyPassword(ctx, "jane@example.com", "wrong password")
	assert.True(t, cardholder.IsErrUnauthorized(err))

	_, err = svc.VerifyPassword(ctx, "nobody@example.com", "correct horse")
	assert.True(t, cardholder.IsErrUnauthorized(err))

	_, err = svc.VerifyPassword(ctx, "", "x")
	assert.True(t, cardholder.IsErrBadRequest(err))

	_, err = svc.SetActive(ctx, "c1", p.ID, false)
	require.NoError(t, err)
	_, err = svc.VerifyPassword(ctx, "jane@example.com", "correct horse")
	assert.ErrorContains(t, err, "account is disabled")
}

func TestVerifyPasswordWithoutPasswordSet(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	_, err = svc.VerifyPassword(ctx, "jane@example.com", "anything-goes")
	assert.True(t, cardholder.IsErrUnauthorized(err))

	require.NoError(t, svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: "new-password"}))
	_, err = svc.VerifyPassword(ctx, "jane@example.com", "new-password")
	assert.NoError(t, err)

	err = svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: "short"})
	assert.True(t, cardholder.IsErrBadRequest(err))
}

func TestSelfService(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)

	bio := "Hello <i>there</i>"
	out, err := svc.UpdateSelf(ctx, p.ID, cardholder.SelfUpdateInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out.Bio)
	assert.Equal(t, "Jane", out.FirstName)

	require.NoError(t, svc.RecordLogin(ctx, p.ID))
	self, err := svc.GetSelf(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, self.LastLoginAt)

	_, err = svc.SetActive(ctx, "c1", p.ID, false)
	require.NoError(t, err)
	_, err = svc.GetSelf(ctx, p.ID)
	assert.True(t, cardholder.IsErrUnauthorized(err))
}

func TestList(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "c1", "a", createInput("John", "Roe", "john@example.com"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, "c2", "a", createInput("Max", "Poe", "max@example.com"))
	require.NoError(t, err)
	_, err = svc.SetActive(ctx, "c1", a.ID, false)
	require.NoError(t, err)

	all, err := svc.List(ctx, "c1", cardholder.ListInput{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, "c1", cardholder.ListInput{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "john@example.com", active[0].Email)
}

// racingStore runs before once, ahead of the next write, to simulate another
// request landing between the service's read and its write.
type racingStore struct {
	*testutil.Cardholders
	before func()
}

func (s *racingStore) race() {
	if f := s.before; f != nil {
		s.before = nil
		f()
	}
}

func (s *racingStore) Update(ctx context.Context, id string, mutate cardholder.MutateFunc) (*cardholder.Profile, error) {
	s.race()
	return s.Cardholders.Update(ctx, id, mutate)
}

func (s *racingStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	s.race()
	return s.Cardholders.TouchLogin(ctx, id, at)
}

func newRacingService(t *testing.T) (*cardholder.Service, *racingStore, *cardholder.Profile) {
	t.Helper()
	store := &racingStore{Cardholders: testutil.NewCardholders()}
	svc := cardholder.NewService(store, nil)
	in := createInput("Jane", "Doe", "jane@example.com")
	in.Password = "correct horse"
	p, err := svc.Create(context.Background(), "c1", "a", in)
	require.NoError(t, err)
	return svc, store, p
}

func TestRecordLoginKeepsConcurrentDeactivation(t *testing.T) {
	svc, store, p := newRacingService(t)
	ctx := context.Background()

	store.before = func() {
		_, err := svc.SetActive(ctx, "c1", p.ID, false)
		require.NoError(t, err)
	}
	require.NoError(t, svc.RecordLogin(ctx, p.ID))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.LastLoginAt)

	_, err = svc.VerifyPassword(ctx, "jane@example.com", "correct horse")
	assert.ErrorContains(t, err, "account is disabled")
}

func TestAdminWritesKeepConcurrentChanges(t *testing.T) {
	svc, store, p := newRacingService(t)
	ctx := context.Background()

	store.before = func() {
		_, err := svc.SetActive(ctx, "c1", p.ID, false)
		require.NoError(t, err)
	}
	require.NoError(t, svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: "brand new pw"}))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	title := "CTO"
	store.before = func() {
		require.NoError(t, svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: "third password"}))
	}
	out, err := svc.Update(ctx, "c1", p.ID, cardholder.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "CTO", out.Title)
	assert.False(t, out.IsActive)

	_, err = svc.SetActive(ctx, "c1", p.ID, true)
	require.NoError(t, err)
	_, err = svc.VerifyPassword(ctx, "jane@example.com", "third password")
	assert.NoError(t, err)
}

func TestUpdateSelfRejectsConcurrentDeactivation(t *testing.T) {
	svc, store, p := newRacingService(t)
	ctx := context.Background()

	store.before = func() {
		_, err := svc.SetActive(ctx, "c1", p.ID, false)
		require.NoError(t, err)
	}
	bio := "hello"
	_, err := svc.UpdateSelf(ctx, p.ID, cardholder.SelfUpdateInput{Bio: &bio})
	assert.True(t, cardholder.IsErrUnauthorized(err))

	got, err := store.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Bio)
	assert.False(t, got.IsActive)
}

func TestPasswordByteLimit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// 40 runes, 80 bytes
	long := strings.Repeat("é", 40)

	in := createInput("Jane", "Doe", "jane@example.com")
	in.Password = long
	_, err := svc.Create(ctx, "c1", "a", in)
	assert.True(t, cardholder.IsErrBadRequest(err), "%v", err)

	p, err := svc.Create(ctx, "c1", "a", createInput("Jane", "Doe", "jane@example.com"))
	require.NoError(t, err)
	err = svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: long})
	assert.True(t, cardholder.IsErrBadRequest(err), "%v", err)

	// 36 runes, 72 bytes
	require.NoError(t, svc.SetPassword(ctx, "c1", p.ID, cardholder.PasswordInput{Password: strings.Repeat("é", 36)}))
}
