// Package service — account business logic.
//
// AuthService is the business logic layer for accounts. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register, Login and UpdateProfile, each ending in a freshly issued token
//   - Keep raw passwords inside this file: the store only ever sees the hash
//   - Turn store failures into apperror values the handler can map to HTTP
//
// ERROR POLICY:
// Domain-rule failures (missing fields, duplicate email, bad credentials, not
// found) come back as their own apperror. Anything else is logged here with
// its cause and returned as apperror.ServiceFailure, whose message is generic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/auth"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

// AuthService handles the account business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write account records
//   - tokens     *auth.TokenService         → issue/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go (or main.go) when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// RegisterInput carries the registration form. FirstName and LastName are optional.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterResult is what a successful registration hands back. It never
// contains the password or its hash.
type RegisterResult struct {
	Token string
	Email string
}

// LoginResult bundles the token with the display name shown by the client.
type LoginResult struct {
	Token    string
	UserName string // the account's first name
	Email    string
}

// Register creates an account and issues its first token.
//
//  1. email and password must both be present
//  2. an existing account with the email → DuplicateEmail
//  3. hash the password, insert the account
//  4. issue a token for the new id
//
// Step 2 is a fast path for the common case. Two concurrent registrations can
// both pass it; the store's unique index then rejects the loser, and that
// Conflict is reported as the same DuplicateEmail.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "Invalid request")
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		s.logger.Warn("registration rejected: email already exists")
		return nil, apperror.DuplicateEmail()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, s.failure("looking up email", err)
	}

	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, s.failure("hashing password", err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Warn("registration rejected: email taken concurrently")
			return nil, apperror.DuplicateEmail()
		}
		return nil, s.failure("creating user", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.failure("issuing token", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return &RegisterResult{Token: token, Email: user.Email}, nil
}

// Login verifies credentials and issues a token.
//
// An unknown email and a wrong password produce the identical
// InvalidCredentials error, so a caller cannot probe which emails exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("login rejected: invalid credentials")
			return nil, apperror.InvalidCredentials()
		}
		return nil, s.failure("looking up user", err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Warn("login rejected: invalid credentials")
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.failure("issuing token", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &LoginResult{Token: token, UserName: user.FirstName, Email: user.Email}, nil
}

// UpdateProfile overwrites the name fields of the account identified by email
// and returns a fresh token for it. Email and password cannot change here.
//
// Both names are overwritten as given; an omitted name becomes empty.
func (s *AuthService) UpdateProfile(ctx context.Context, email, firstName, lastName string) (string, error) {
	if email == "" {
		return "", apperror.ValidationFailed("email", "Email not provided")
	}

	updated, err := s.users.UpdateProfile(ctx, &model.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("profile update rejected: user not found")
			return "", apperror.NotFound("User")
		}
		return "", s.failure("updating profile", err)
	}

	token, err := s.tokens.Issue(updated.ID)
	if err != nil {
		return "", s.failure("issuing token", err)
	}

	s.logger.Info("user profile updated", slog.String("userID", updated.ID))
	return token, nil
}

// GetUserByID returns the account for the given internal ID.
//
// Used by the /api/auth/me handler after the middleware validates the bearer
// token and extracts the id it carries.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("User")
		}
		return nil, s.failure("fetching user", err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the user id it encodes.
//
// This is a thin delegation to TokenService.Validate. Having it on
// AuthService means the middleware only needs the service, not the auth package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

// failure logs an infrastructure error with its cause and wraps it in the
// generic ServiceFailure that callers are allowed to see.
func (s *AuthService) failure(op string, err error) error {
	s.logger.Error("account operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.ServiceFailure(fmt.Errorf("service/auth: %s: %w", op, err))
}
