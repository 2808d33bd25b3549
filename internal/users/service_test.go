package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"dcc-backend/internal/auth"
	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/listing"
	"dcc-backend/internal/models"
	"dcc-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	users      map[string]models.User
	updateHook func()
}

func newFakeRepo(users ...models.User) *fakeRepo {
	r := &fakeRepo{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, user models.User) error {
	for _, existing := range r.users {
		if existing.ClinicSlug == user.ClinicSlug && existing.Email == user.Email {
			return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, clinicSlug, id string) (models.User, error) {
	u, ok := r.users[id]
	if !ok || u.ClinicSlug != clinicSlug {
		return models.User{}, mongo.ErrNoDocuments
	}
	return u, nil
}

func (r *fakeRepo) GetByEmail(_ context.Context, clinicSlug, email string) (models.User, error) {
	for _, u := range r.users {
		if u.ClinicSlug == clinicSlug && u.Email == email {
			return u, nil
		}
	}
	return models.User{}, mongo.ErrNoDocuments
}

func (r *fakeRepo) ListByClinic(_ context.Context, clinicSlug string, roles []string) ([]models.User, error) {
	items := make([]models.User, 0)
	for _, u := range r.users {
		if u.ClinicSlug != clinicSlug || u.Retired {
			continue
		}
		if len(roles) > 0 {
			match := false
			for _, role := range roles {
				if u.Role == role {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		items = append(items, u)
	}
	return items, nil
}

func (r *fakeRepo) Update(_ context.Context, clinicSlug, id string, set bson.M, unset bson.M) (models.User, error) {
	if r.updateHook != nil {
		r.updateHook()
	}
	u, ok := r.users[id]
	if !ok || u.ClinicSlug != clinicSlug {
		return models.User{}, mongo.ErrNoDocuments
	}

	for key, value := range set {
		switch key {
		case "enabled":
			u.Enabled = value.(bool)
		case "retired":
			u.Retired = value.(bool)
		case "names":
			u.Names = value.(string)
		case "lastNames":
			u.LastNames = value.(string)
		case "phone":
			u.Phone = value.(string)
		case "address":
			u.Address = value.(string)
		case "nationality":
			u.Nationality = value.(string)
		case "passwordHash":
			u.PasswordHash = value.(string)
		case "deactivationDate":
			t := value.(time.Time)
			u.DeactivationDate = &t
		case "activationDate":
			t := value.(time.Time)
			u.ActivationDate = &t
		case "updatedAt":
			u.UpdatedAt = value.(time.Time)
		}
	}
	for key := range unset {
		switch key {
		case "deactivationDate":
			u.DeactivationDate = nil
		case "activationDate":
			u.ActivationDate = nil
		}
	}

	r.users[id] = u
	return u, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	tokens := &auth.Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "dcc-backend-test",
	}
	svc, err := NewService(repo, tokens, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), loc)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func testUser(id, email string) models.User {
	hash, _ := auth.HashPassword("correct-horse-battery")
	return models.User{
		ID:           id,
		ClinicSlug:   "rehab-center",
		Names:        "Ana",
		LastNames:    "Diaz",
		Email:        email,
		Role:         models.RoleTherapist,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    time.Now(),
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	user, pair, err := svc.Login(context.Background(), "rehab-center", LoginRequest{
		Email:    "Ana@Example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected user u1, got %s", user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	_, _, err := svc.Login(context.Background(), "rehab-center", LoginRequest{
		Email:    "ana@example.com",
		Password: "nope",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	u := testUser("u1", "ana@example.com")
	u.Enabled = false
	svc := newTestService(t, newFakeRepo(u))

	_, _, err := svc.Login(context.Background(), "rehab-center", LoginRequest{
		Email:    "ana@example.com",
		Password: "correct-horse-battery",
	})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginInsideDeactivationWindow(t *testing.T) {
	u := testUser("u1", "ana@example.com")
	past := time.Now().Add(-time.Hour)
	u.DeactivationDate = &past
	svc := newTestService(t, newFakeRepo(u))

	_, _, err := svc.Login(context.Background(), "rehab-center", LoginRequest{
		Email:    "ana@example.com",
		Password: "correct-horse-battery",
	})
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	_, err := svc.Register(context.Background(), "rehab-center", RegisterRequest{
		Names:     "Ana",
		LastNames: "Diaz",
		Email:     "ana@example.com",
		Password:  "another-password",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	_, err := svc.Remove(context.Background(), "rehab-center", RemoveRequest{ID: "u1"})
	if !errors.Is(err, ErrConfirmRequired) {
		t.Fatalf("expected ErrConfirmRequired, got %v", err)
	}
	if repo.users["u1"].Retired {
		t.Fatalf("unconfirmed removal must not retire the account")
	}
}

func TestRemoveRetiresAccount(t *testing.T) {
	u := testUser("u1", "ana@example.com")
	future := time.Now().Add(48 * time.Hour)
	u.DeactivationDate = &future
	repo := newFakeRepo(u)
	svc := newTestService(t, repo)

	removed, err := svc.Remove(context.Background(), "rehab-center", RemoveRequest{ID: "u1", Confirm: true})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed.Retired || removed.Enabled {
		t.Fatalf("expected retired disabled account, got %+v", removed)
	}
	if removed.DeactivationDate != nil || removed.ActivationDate != nil {
		t.Fatalf("removal must clear the scheduled window")
	}
}

func TestRemoveWhileInFlight(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	var nested error
	repo.updateHook = func() {
		hook := repo.updateHook
		repo.updateHook = nil
		defer func() { repo.updateHook = hook }()
		_, nested = svc.Remove(context.Background(), "rehab-center", RemoveRequest{ID: "u1", Confirm: true})
	}

	if _, err := svc.Remove(context.Background(), "rehab-center", RemoveRequest{ID: "u1", Confirm: true}); err != nil {
		t.Fatalf("outer remove: %v", err)
	}
	if !errors.Is(nested, lifecycle.ErrBusy) {
		t.Fatalf("expected nested remove to hit ErrBusy, got %v", nested)
	}
}

func TestDeactivateImmediate(t *testing.T) {
	u := testUser("u1", "ana@example.com")
	future := time.Now().Add(48 * time.Hour)
	u.DeactivationDate = &future
	repo := newFakeRepo(u)
	svc := newTestService(t, repo)

	updated, err := svc.Deactivate(context.Background(), "rehab-center", DeactivateRequest{
		ID:        "u1",
		Immediate: true,
	})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.Enabled {
		t.Fatalf("expected account disabled")
	}
	if updated.DeactivationDate != nil {
		t.Fatalf("immediate deactivation must clear the scheduled window")
	}
}

func TestDeactivateScheduled(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	loc, _ := time.LoadLocation("America/Bogota")
	start := time.Now().In(loc).AddDate(0, 0, 2)
	end := start.AddDate(0, 0, 5)

	updated, err := svc.Deactivate(context.Background(), "rehab-center", DeactivateRequest{
		ID:               "u1",
		DeactivationDate: start.Format("2006-01-02"),
		DeactivationHour: "9",
		ActivationDate:   end.Format("2006-01-02"),
		ActivationHour:   "9",
	})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if updated.DeactivationDate == nil || updated.ActivationDate == nil {
		t.Fatalf("expected both window instants set, got %+v", updated)
	}
	if got := updated.DeactivationDate.Hour(); got != 9 {
		t.Fatalf("expected deactivation at 09:00 local, got hour %d", got)
	}
	if !updated.Enabled {
		t.Fatalf("scheduled deactivation must not flip enabled immediately")
	}
}

func TestDeactivatePastDateRejected(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	_, err := svc.Deactivate(context.Background(), "rehab-center", DeactivateRequest{
		ID:               "u1",
		DeactivationDate: "2020-01-01",
		DeactivationHour: "9",
	})
	if !errors.Is(err, schedule.ErrDeactivationDatePast) {
		t.Fatalf("expected ErrDeactivationDatePast, got %v", err)
	}
}

func TestDeactivateFailureAllowsRetry(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	// First attempt fails validation, second succeeds.
	if _, err := svc.Deactivate(context.Background(), "rehab-center", DeactivateRequest{ID: "u1"}); err == nil {
		t.Fatalf("expected validation error for empty window")
	}
	if _, err := svc.Deactivate(context.Background(), "rehab-center", DeactivateRequest{
		ID:        "u1",
		Immediate: true,
	}); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestGetAllPagesAtSeven(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 10; i++ {
		u := testUser(string(rune('a'+i)), string(rune('a'+i))+"@example.com")
		repo.users[u.ID] = u
	}
	svc := newTestService(t, repo)

	first, err := svc.GetAll(context.Background(), "rehab-center", "", "", "email", listing.Ascending, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Users) != listing.AdminPageSize {
		t.Fatalf("expected %d rows on page 0, got %d", listing.AdminPageSize, len(first.Users))
	}
	if first.Total != 10 || first.PageCount != 2 {
		t.Fatalf("expected total 10 over 2 pages, got %+v", first)
	}

	second, err := svc.GetAll(context.Background(), "rehab-center", "", "", "email", listing.Ascending, 1)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(second.Users) != 3 {
		t.Fatalf("expected 3 rows on page 1, got %d", len(second.Users))
	}
}

func TestGetAllFiltersRetired(t *testing.T) {
	active := testUser("u1", "ana@example.com")
	retired := testUser("u2", "gone@example.com")
	retired.Retired = true
	svc := newTestService(t, newFakeRepo(active, retired))

	result, err := svc.GetAll(context.Background(), "rehab-center", "", "", "", listing.Descending, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected retired accounts excluded, got %d rows", result.Total)
	}
}

func TestGetAllQueryFilter(t *testing.T) {
	a := testUser("u1", "ana@example.com")
	b := testUser("u2", "bruno@example.com")
	b.Names = "Bruno"
	svc := newTestService(t, newFakeRepo(a, b))

	result, err := svc.GetAll(context.Background(), "rehab-center", "", "bruno", "", listing.Descending, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 || result.Users[0].ID != "u2" {
		t.Fatalf("expected only bruno, got %+v", result)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	err := svc.ChangePassword(context.Background(), "rehab-center", "u1", ChangePasswordRequest{
		CurrentPassword: "correct-horse-battery",
		NewPassword:     "a-brand-new-password",
	})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if err := auth.ComparePassword(repo.users["u1"].PasswordHash, "a-brand-new-password"); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	repo := newFakeRepo(testUser("u1", "ana@example.com"))
	svc := newTestService(t, repo)

	err := svc.ChangePassword(context.Background(), "rehab-center", "u1", ChangePasswordRequest{
		CurrentPassword: "nope",
		NewPassword:     "a-brand-new-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
