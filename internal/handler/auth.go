package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/auth"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/service"
)

// AccountService is the part of service.AuthService the handler calls.
// Declaring it here lets tests swap in a fake.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	UpdateProfile(ctx context.Context, email, firstName, lastName string) (string, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthHandler serves the account routes.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, answer with its first token
//   - HandleLogin    → check credentials, answer with a token and first name
//   - HandleUpdate   → overwrite first/last name, answer with a fresh token
//   - HandleMe       → return the account behind a bearer token
type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type registerResponse struct {
	AuthToken string `json:"authtoken"`
	Email     string `json:"email"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email":"a@x.com","password":"p1","firstName":"Jo","lastName":"Doe"}
// RESPONSE:     {"authtoken":"<jwt>","email":"a@x.com"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("", "Invalid request"))
		return
	}

	res, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{AuthToken: res.Token, Email: res.Email})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AuthToken string `json:"authtoken"`
	UserName  string `json:"userName"`
	UserEmail string `json:"userEmail"`
}

// HandleLogin authenticates an account.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"a@x.com","password":"p1"}
// RESPONSE:     {"authtoken":"<jwt>","userName":"Jo","userEmail":"a@x.com"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeError(w, apperror.InvalidCredentials())
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AuthToken: res.Token,
		UserName:  res.UserName,
		UserEmail: res.Email,
	})
}

// The profile form uses lowercase keys, unlike registration.
type updateRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

type tokenResponse struct {
	AuthToken string `json:"authtoken"`
}

// HandleUpdate overwrites the name fields of an account.
//
// HTTP: PUT /api/auth/update
// HEADERS:      email: a@x.com
// REQUEST BODY: {"firstname":"Jo","lastname":"Doe"}
// RESPONSE:     {"authtoken":"<jwt>"}
//
// An empty body is accepted and clears both names.
func (h *AuthHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("email")
	if email == "" {
		h.logger.Warn("profile update rejected: email header missing")
		writeError(w, apperror.ValidationFailed("email", "Email not provided"))
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid update JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("", "Invalid request"))
		return
	}

	token, err := h.accounts.UpdateProfile(r.Context(), email, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AuthToken: token})
}

// HandleMe returns the account the bearer token was issued for.
//
// HTTP: GET /api/auth/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	user, err := h.accounts.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
