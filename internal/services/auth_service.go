package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sofia-backend/internal/auth"
	"sofia-backend/internal/config"
	"sofia-backend/internal/mail"
	"sofia-backend/internal/models"
	"sofia-backend/internal/store"

	"github.com/google/uuid"
)

// Custom errors for auth service
var (
	ErrUserAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailNotVerified   = errors.New("please verify your email address before logging in")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrHashingPassword    = errors.New("failed to hash password")
	ErrCreatingToken      = errors.New("failed to create access token")
	ErrValidation         = errors.New("input validation failed")
)

const verificationTokenTTL = time.Hour

type AuthService struct {
	store  store.Store
	cfg    *config.Config
	mailer *mail.Mailer
}

func NewAuthService(s store.Store, cfg *config.Config, mailer *mail.Mailer) *AuthService {
	return &AuthService{
		store:  s,
		cfg:    cfg,
		mailer: mailer,
	}
}

// Signup creates a new user and emails a verification link.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	// Check if user already exists
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Error checking user existence for %s: %v", email, err)
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", email, err)
		return nil, ErrHashingPassword
	}

	user := &models.User{
		ID:             uuid.New(),
		Name:           name,
		Email:          email,
		HashedPassword: hashedPassword,
		IsAdmin:        s.cfg.AdminEmail != "" && email == strings.ToLower(s.cfg.AdminEmail),
		IsPremium:      false,
		IsVerified:     false, // user must verify email before logging in
		AuthSessionID:  uuid.New(),
		UsageCounts:    models.UsageCounts{},
		LastUsageReset: time.Now().UTC().Format("2006-01-02"),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		log.Printf("Error creating user for %s: %v", email, err)
		return nil, fmt.Errorf("creating user failed: %w", err)
	}

	s.sendVerificationEmail(user)

	log.Printf("Successfully signed up user %s (ID: %s)", email, user.ID)
	return user, nil
}

// Login verifies user credentials and returns an access token and user info.
// A successful login rotates the user's auth session id, which logs the
// account out of every other device.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials // don't reveal whether the user exists
		}
		log.Printf("Error retrieving user %s during login: %v", email, err)
		return "", nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.HashedPassword) {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		log.Printf("Login blocked for %s - not verified", email)
		return "", nil, ErrEmailNotVerified
	}

	newSessionID := uuid.New()
	if err := s.store.RotateAuthSession(ctx, user.ID, newSessionID); err != nil {
		log.Printf("Error rotating auth session for user %s: %v", user.ID, err)
		return "", nil, fmt.Errorf("failed to rotate auth session: %w", err)
	}
	user.AuthSessionID = newSessionID

	token, err := auth.NewAccessToken(user.ID, newSessionID, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		log.Printf("Error generating JWT for user %s (ID: %s): %v", email, user.ID, err)
		return "", nil, ErrCreatingToken
	}

	log.Printf("Successfully logged in user %s (ID: %s)", email, user.ID)
	return token, user, nil
}

// ConfirmEmail validates a verification token and marks the user verified.
// Re-confirming an already verified account is a no-op.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	email, err := auth.ParseVerificationToken(token, s.cfg.JWTSecret)
	if err != nil {
		return err // auth.ErrInvalidVerifyToken
	}

	if err := s.store.SetUserVerified(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	log.Printf("User %s successfully verified", email)
	return nil
}

// ResendVerification sends a fresh verification email for an unverified account.
func (s *AuthService) ResendVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	s.sendVerificationEmail(user)
	return nil
}

func (s *AuthService) sendVerificationEmail(user *models.User) {
	token, err := auth.NewVerificationToken(user.Email, s.cfg.JWTSecret, verificationTokenTTL)
	if err != nil {
		log.Printf("ERROR [AuthService] Failed to mint verification token for %s: %v", user.Email, err)
		return
	}
	confirmURL := fmt.Sprintf("%s/confirm/%s", strings.TrimRight(s.cfg.PublicURL, "/"), token)
	subject, body := mail.VerificationEmail(user.Name, confirmURL)
	s.mailer.SendAsync(user.Email, subject, body)
}
