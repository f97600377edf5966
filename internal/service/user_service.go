package service

import (
	"context"
	"log/slog"
	"mime/multipart"
	"strings"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/repository"
	"snapfeed/internal/upload"
	"snapfeed/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new password hashes.
const PasswordCost = 10

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password; callers cannot tell the two apart.
var ErrInvalidCredentials = models.NewUnauthorizedError("Invalid email or password")

// dummyHash keeps Login's timing similar whether or not the email exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("snapfeed-dummy-password"), PasswordCost)

// RegisterInput is the registration form.
type RegisterInput struct {
	Name     string `form:"name" validate:"max=100"`
	Username string `form:"username" validate:"required,username"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,password"`
	Age      int    `form:"age" validate:"gte=0,lte=150"`
}

// UserService handles accounts, credentials and profile pictures.
type UserService struct {
	users     repository.UserRepository
	uploads   *upload.Store
	validator *validation.Validator
	log       *slog.Logger
}

// NewUserService returns a UserService; a nil validator or logger gets a default.
func NewUserService(
	users repository.UserRepository,
	uploads *upload.Store,
	validator *validation.Validator,
	log *slog.Logger,
) *UserService {
	if validator == nil {
		validator = validation.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, uploads: uploads, validator: validator, log: log}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password. An email that is
// already registered yields a CONFLICT error and no new record.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = NormalizeEmail(in.Email)

	// A taken email is a conflict whatever else is wrong with the form.
	if err := s.validator.Var("email", in.Email, "required,email,max=254"); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User already registered")
	}

	if err := s.validator.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		Age:      in.Age,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues(observability.AuthRegister).Inc()
	s.log.InfoContext(ctx, "user registered", slog.Uint64("new_user_id", uint64(user.ID)))
	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		observability.AuthEvents.WithLabelValues(observability.AuthLoginFailure).Inc()
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.AuthEvents.WithLabelValues(observability.AuthLoginFailure).Inc()
		return nil, ErrInvalidCredentials
	}

	observability.AuthEvents.WithLabelValues(observability.AuthLoginSuccess).Inc()
	return user, nil
}

// Get returns the user by id through the cache.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Profile returns the user with posts, images and likes loaded.
func (s *UserService) Profile(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByIDWithPosts(ctx, id)
}

// UploadProfilePicture stores fh and makes it the user's picture. The
// previous custom picture is removed from disk.
func (s *UserService) UploadProfilePicture(ctx context.Context, userID uint, fh *multipart.FileHeader) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	path, err := s.uploads.Save(fh)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfilePic(ctx, userID, path); err != nil {
		s.uploads.Remove(path)
		return "", err
	}

	if user.HasCustomPicture() {
		s.uploads.Remove(user.ProfilePic)
	}
	return path, nil
}
