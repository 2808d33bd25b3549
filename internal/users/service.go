package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dcc-backend/internal/auth"
	"dcc-backend/internal/lifecycle"
	"dcc-backend/internal/listing"
	"dcc-backend/internal/models"
	"dcc-backend/internal/schedule"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrConfirmRequired    = errors.New("removal must be confirmed")
	ErrRoleNotAllowed     = errors.New("role not allowed for this operation")
)

// Mailer is the outbound notification surface the service needs. A nil
// Mailer disables notifications without failing the operation.
type Mailer interface {
	SendAccountActivation(ctx context.Context, clinic models.Clinic, user models.User, code string) (string, error)
}

type Service struct {
	repo     Repository
	tokens   *auth.Manager
	tracker  *lifecycle.Tracker
	mailer   Mailer
	ctrl     *listing.Controller[models.User]
	log      *slog.Logger
	location *time.Location
}

func NewService(repo Repository, tokens *auth.Manager, mailer Mailer, log *slog.Logger, location *time.Location) (*Service, error) {
	ctrl, err := listing.NewController(
		listing.AdminPageSize,
		func(u models.User) []string {
			return []string{u.Names, u.LastNames, u.Email, u.Phone}
		},
		listing.ByString(func(u models.User) string { return u.ID }),
		map[string]listing.Comparator[models.User]{
			"name":    listing.ByString(func(u models.User) string { return u.Names + " " + u.LastNames }),
			"email":   listing.ByString(func(u models.User) string { return u.Email }),
			"role":    listing.ByString(func(u models.User) string { return u.Role }),
			"created": listing.ByTime(func(u models.User) time.Time { return u.CreatedAt }),
		},
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:     repo,
		tokens:   tokens,
		tracker:  lifecycle.NewTracker(),
		mailer:   mailer,
		ctrl:     ctrl,
		log:      log,
		location: location,
	}, nil
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (s *Service) Login(ctx context.Context, clinicSlug string, req LoginRequest) (models.User, TokenPair, error) {
	user, err := s.repo.GetByEmail(ctx, clinicSlug, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return models.User{}, TokenPair{}, err
	}

	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if !user.EnabledAt(time.Now().In(s.location)) {
		return models.User{}, TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *Service) Refresh(ctx context.Context, clinicSlug, refreshToken string) (models.User, TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken)
	if err != nil {
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}
	if claims.Slug != clinicSlug {
		return models.User{}, TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.repo.GetByID(ctx, clinicSlug, claims.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return models.User{}, TokenPair{}, err
	}
	if !user.EnabledAt(time.Now().In(s.location)) {
		return models.User{}, TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

type RegisterRequest struct {
	Names       string `json:"names" validate:"required,min=2,max=80"`
	LastNames   string `json:"last_names" validate:"required,min=2,max=80"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Address     string `json:"address" validate:"omitempty,max=200"`
	Nationality string `json:"nationality" validate:"omitempty,len=2"`
}

// Register creates a patient account. Staff accounts go through Create.
func (s *Service) Register(ctx context.Context, clinicSlug string, req RegisterRequest) (models.User, error) {
	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, clinicSlug, email); err != nil {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().In(s.location)
	user := models.User{
		ID:           primitive.NewObjectID().Hex(),
		ClinicSlug:   clinicSlug,
		Names:        strings.TrimSpace(req.Names),
		LastNames:    strings.TrimSpace(req.LastNames),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		Nationality:  strings.ToUpper(strings.TrimSpace(req.Nationality)),
		Role:         models.RolePatient,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

type CreateRequest struct {
	Names     string `json:"names" validate:"required,min=2,max=80"`
	LastNames string `json:"last_names" validate:"required,min=2,max=80"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Role      string `json:"role" validate:"required,role"`
}

// Create registers a staff member and mails them a one-time activation
// code that doubles as the initial password.
func (s *Service) Create(ctx context.Context, clinic models.Clinic, req CreateRequest) (models.User, error) {
	switch req.Role {
	case models.RoleAdministrator, models.RoleTherapist, models.RoleReceptionist:
	default:
		return models.User{}, ErrRoleNotAllowed
	}

	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, clinic.Slug, email); err != nil {
		return models.User{}, err
	}

	code := uuid.NewString()
	hash, err := auth.HashPassword(code)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().In(s.location)
	user := models.User{
		ID:           primitive.NewObjectID().Hex(),
		ClinicSlug:   clinic.Slug,
		Names:        strings.TrimSpace(req.Names),
		LastNames:    strings.TrimSpace(req.LastNames),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}

	if s.mailer != nil {
		if _, err := s.mailer.SendAccountActivation(ctx, clinic, user, code); err != nil {
			s.log.Warn("user create: activation email failed",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()))
		}
	}
	return user, nil
}

type ListResult struct {
	Users     []models.User `json:"users"`
	Total     int           `json:"total"`
	Page      int           `json:"page"`
	PageCount int           `json:"page_count"`
}

func (s *Service) GetAll(ctx context.Context, clinicSlug, role, query, sortBy string, dir listing.Direction, page int) (ListResult, error) {
	var roles []string
	if role != "" {
		if !models.ValidRole(role) {
			return ListResult{}, ErrRoleNotAllowed
		}
		roles = []string{role}
	}

	all, err := s.repo.ListByClinic(ctx, clinicSlug, roles)
	if err != nil {
		return ListResult{}, err
	}

	filtered := s.ctrl.Filter(all, query)
	sorted := s.ctrl.Sort(filtered, sortBy, dir)
	return ListResult{
		Users:     s.ctrl.Page(sorted, page),
		Total:     len(filtered),
		Page:      page,
		PageCount: s.ctrl.PageCount(len(filtered)),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, clinicSlug, id string) (models.User, error) {
	user, err := s.repo.GetByID(ctx, clinicSlug, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

type EditRequest struct {
	ID          string `json:"id" validate:"required"`
	Names       string `json:"names" validate:"required,min=2,max=80"`
	LastNames   string `json:"last_names" validate:"required,min=2,max=80"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Address     string `json:"address" validate:"omitempty,max=200"`
	Nationality string `json:"nationality" validate:"omitempty,len=2"`
}

func (s *Service) Edit(ctx context.Context, clinicSlug string, req EditRequest) (models.User, error) {
	set := bson.M{
		"names":       strings.TrimSpace(req.Names),
		"lastNames":   strings.TrimSpace(req.LastNames),
		"phone":       strings.TrimSpace(req.Phone),
		"address":     strings.TrimSpace(req.Address),
		"nationality": strings.ToUpper(strings.TrimSpace(req.Nationality)),
		"updatedAt":   time.Now().In(s.location),
	}
	return s.update(ctx, clinicSlug, req.ID, set, nil)
}

type DeactivateRequest struct {
	ID               string `json:"id" validate:"required"`
	Immediate        bool   `json:"immediate"`
	DeactivationDate string `json:"deactivation_date" validate:"omitempty,date"`
	DeactivationHour string `json:"deactivation_hour" validate:"omitempty,hourcode"`
	ActivationDate   string `json:"activation_date" validate:"omitempty,date"`
	ActivationHour   string `json:"activation_hour" validate:"omitempty,hourcode"`
}

// Deactivate disables an account, either right away or at a scheduled
// clinic-local instant with an optional reactivation instant.
func (s *Service) Deactivate(ctx context.Context, clinicSlug string, req DeactivateRequest) (models.User, error) {
	id := strings.TrimSpace(req.ID)
	if err := s.tracker.Begin(id); err != nil {
		return models.User{}, err
	}

	user, err := s.deactivate(ctx, clinicSlug, id, req)
	if err != nil {
		_ = s.tracker.Fail(id, err.Error())
		return models.User{}, err
	}
	_ = s.tracker.Succeed(id)
	return user, nil
}

func (s *Service) deactivate(ctx context.Context, clinicSlug, id string, req DeactivateRequest) (models.User, error) {
	now := time.Now().In(s.location)
	if req.Immediate {
		set := bson.M{"enabled": false, "updatedAt": now}
		unset := bson.M{"deactivationDate": "", "activationDate": ""}
		return s.update(ctx, clinicSlug, id, set, unset)
	}

	window := schedule.Window{
		DeactivationDate: req.DeactivationDate,
		DeactivationHour: req.DeactivationHour,
		ActivationDate:   req.ActivationDate,
		ActivationHour:   req.ActivationHour,
	}
	if err := window.Validate(s.location, now); err != nil {
		return models.User{}, err
	}

	deactivateAt, activateAt, err := window.Resolve(s.location)
	if err != nil {
		return models.User{}, err
	}

	set := bson.M{"deactivationDate": deactivateAt, "updatedAt": now}
	unset := bson.M{}
	if activateAt != nil {
		set["activationDate"] = *activateAt
	} else {
		unset["activationDate"] = ""
	}
	return s.update(ctx, clinicSlug, id, set, unset)
}

// Activate re-enables an account and clears any scheduled window.
func (s *Service) Activate(ctx context.Context, clinicSlug, id string) (models.User, error) {
	set := bson.M{"enabled": true, "updatedAt": time.Now().In(s.location)}
	unset := bson.M{"deactivationDate": "", "activationDate": ""}
	return s.update(ctx, clinicSlug, strings.TrimSpace(id), set, unset)
}

type RemoveRequest struct {
	ID      string `json:"id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// Remove retires an account for good. The caller must set confirm, the
// operation is not reversible through the API.
func (s *Service) Remove(ctx context.Context, clinicSlug string, req RemoveRequest) (models.User, error) {
	if !req.Confirm {
		return models.User{}, ErrConfirmRequired
	}

	id := strings.TrimSpace(req.ID)
	if err := s.tracker.Begin(id); err != nil {
		return models.User{}, err
	}

	set := bson.M{
		"retired":   true,
		"enabled":   false,
		"updatedAt": time.Now().In(s.location),
	}
	unset := bson.M{"deactivationDate": "", "activationDate": ""}
	user, err := s.update(ctx, clinicSlug, id, set, unset)
	if err != nil {
		_ = s.tracker.Fail(id, err.Error())
		return models.User{}, err
	}
	_ = s.tracker.Succeed(id)
	return user, nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (s *Service) ChangePassword(ctx context.Context, clinicSlug, userID string, req ChangePasswordRequest) error {
	user, err := s.GetByID(ctx, clinicSlug, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	set := bson.M{"passwordHash": hash, "updatedAt": time.Now().In(s.location)}
	_, err = s.update(ctx, clinicSlug, userID, set, nil)
	return err
}

// RemovalStatus exposes the interstitial state of a destructive operation
// so clients can resume a confirmation dialog after a reload.
func (s *Service) RemovalStatus(id string) lifecycle.Status {
	return s.tracker.Status(strings.TrimSpace(id))
}

func (s *Service) update(ctx context.Context, clinicSlug, id string, set bson.M, unset bson.M) (models.User, error) {
	updated, err := s.repo.Update(ctx, clinicSlug, id, set, unset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return updated, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, clinicSlug, email string) error {
	_, err := s.repo.GetByEmail(ctx, clinicSlug, email)
	if err == nil {
		return ErrEmailTaken
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}

func (s *Service) issueTokens(user models.User) (TokenPair, error) {
	access, err := s.tokens.NewAccessToken(user.ID, user.Role, user.ClinicSlug)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.NewRefreshToken(user.ID, user.Role, user.ClinicSlug)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
