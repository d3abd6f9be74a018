package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/auth"
	"github.com/sakif/secondchance/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests easy to read — you can see
// exactly what the fake does. Email uniqueness is enforced like a unique index.
type fakeUserRepo struct {
	byEmail map[string]*model.User
	byID    map[string]*model.User
	nextID  int

	// set to a non-nil error to simulate a database failure
	createErr     error
	getByEmailErr error
	updateErr     error

	// hideOnLookup makes GetByEmail report NotFound even for stored users,
	// simulating a concurrent registration that slipped past the pre-check.
	hideOnLookup bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*model.User),
		byID:    make(map[string]*model.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[user.Email]; exists {
		return apperror.Conflict("User", "email")
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()

	copied := *user
	f.byEmail[user.Email] = &copied
	f.byID[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	u, ok := f.byEmail[email]
	if !ok || f.hideOnLookup {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, user *model.User) (*model.User, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.byEmail[user.Email]
	if !ok {
		return nil, apperror.NotFound("User")
	}
	now := time.Now()
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.UpdatedAt = &now
	copied := *u
	return &copied, nil
}

// discardLogger drops every record; tests assert on return values, not logs.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService returns an AuthService wired with fake dependencies and
// the TokenService it issues with, so tests can decode the tokens.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, discardLogger()), ts
}

func register(t *testing.T, svc *AuthService, email, password, first string) *RegisterResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Email: email, Password: password, FirstName: first})
	if err != nil {
		t.Fatalf("Register(%q) error = %v", email, err)
	}
	return res
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)

	res := register(t, svc, "a@x.com", "p1", "Ada")

	if res.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", res.Email, "a@x.com")
	}
	userID, err := ts.Validate(res.Token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if stored := repo.byEmail["a@x.com"]; stored == nil || stored.ID != userID {
		t.Errorf("token subject %q does not match the stored account", userID)
	}
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	register(t, svc, "a@x.com", "p1", "")

	stored := repo.byEmail["a@x.com"]
	if stored.PasswordHash == "" || stored.PasswordHash == "p1" {
		t.Fatalf("stored hash = %q, want a bcrypt digest", stored.PasswordHash)
	}
	if !auth.NewPasswordServiceForTest(4).Verify(stored.PasswordHash, "p1") {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing email", RegisterInput{Password: "p1"}},
		{"missing password", RegisterInput{Email: "a@x.com"}},
		{"both missing", RegisterInput{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)

	register(t, svc, "a@x.com", "p1", "First")
	original := *repo.byEmail["a@x.com"]

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "other", FirstName: "Second"})
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("second Register() error = %v, want ErrDuplicateEmail", err)
	}

	after := repo.byEmail["a@x.com"]
	if after.PasswordHash != original.PasswordHash || after.FirstName != "First" {
		t.Error("duplicate registration altered the first account")
	}
}

func TestRegister_ConcurrentDuplicateCaughtByStore(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newTestAuthService(t, repo)
	register(t, svc, "a@x.com", "p1", "")

	// The pre-check misses the existing account; the store's Conflict must
	// still come out as DuplicateEmail.
	repo.hideOnLookup = true
	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p2"})
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Errorf("Register() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegister_PasswordTooLong(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: strings.Repeat("x", 73)})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register() error = %v, want ErrValidation", err)
	}
}

func TestRegister_StoreFailureIsServiceFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errors.New("connection refused")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@x.com", Password: "p1"})
	if !errors.Is(err, apperror.ErrServiceFailure) {
		t.Fatalf("Register() error = %v, want ErrServiceFailure", err)
	}
	if strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Register() error message leaks the cause: %q", err.Error())
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	register(t, svc, "a@x.com", "p1", "Ada")

	res, err := svc.Login(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if res.UserName != "Ada" || res.Email != "a@x.com" {
		t.Errorf("Login() = {UserName:%q Email:%q}, want Ada / a@x.com", res.UserName, res.Email)
	}
	userID, err := ts.Validate(res.Token)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if userID != repo.byEmail["a@x.com"].ID {
		t.Errorf("token subject = %q, want %q", userID, repo.byEmail["a@x.com"].ID)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	register(t, svc, "a@x.com", "p1", "")

	_, wrongPassword := svc.Login(context.Background(), "a@x.com", "nope")
	_, unknownEmail := svc.Login(context.Background(), "ghost@x.com", "p1")

	for name, err := range map[string]error{"wrong password": wrongPassword, "unknown email": unknownEmail} {
		if !errors.Is(err, apperror.ErrInvalidCredentials) {
			t.Errorf("%s: error = %v, want ErrInvalidCredentials", name, err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword.Error(), unknownEmail.Error())
	}
}

func TestLogin_EmptyInput(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Login(context.Background(), "", "")
	if !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_StoreFailureIsServiceFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.getByEmailErr = errors.New("timeout")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), "a@x.com", "p1")
	if !errors.Is(err, apperror.ErrServiceFailure) {
		t.Errorf("Login() error = %v, want ErrServiceFailure", err)
	}
}

// =========================================================================
// UpdateProfile TESTS
// =========================================================================

func TestUpdateProfile_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	register(t, svc, "a@x.com", "p1", "Ada")

	token, err := svc.UpdateProfile(context.Background(), "a@x.com", "Jo", "Smith")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	stored := repo.byEmail["a@x.com"]
	if stored.FirstName != "Jo" || stored.LastName != "Smith" {
		t.Errorf("stored name = %q %q, want Jo Smith", stored.FirstName, stored.LastName)
	}
	if stored.UpdatedAt == nil {
		t.Error("UpdateProfile() did not stamp UpdatedAt")
	}
	if userID, err := ts.Validate(token); err != nil || userID != stored.ID {
		t.Errorf("fresh token subject = %q (err %v), want %q", userID, err, stored.ID)
	}
}

func TestUpdateProfile_MissingEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.UpdateProfile(context.Background(), "", "Jo", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateProfile() error = %v, want ErrValidation", err)
	}
}

func TestUpdateProfile_UnknownEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.UpdateProfile(context.Background(), "ghost@x.com", "Jo", "")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProfile() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateProfile_StoreFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.updateErr = errors.New("write conflict")
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.UpdateProfile(context.Background(), "a@x.com", "Jo", "")
	if !errors.Is(err, apperror.ErrServiceFailure) {
		t.Errorf("UpdateProfile() error = %v, want ErrServiceFailure", err)
	}
}

// =========================================================================
// GetUserByID / ValidateToken TESTS
// =========================================================================

func TestGetUserByID_Found(t *testing.T) {
	repo := newFakeUserRepo()
	svc, ts := newTestAuthService(t, repo)
	res := register(t, svc, "a@x.com", "p1", "Ada")

	userID, _ := ts.Validate(res.Token)
	user, err := svc.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Email != "a@x.com" {
		t.Errorf("Email = %q, want %q", user.Email, "a@x.com")
	}
}

func TestGetUserByID_EmptyID(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.GetUserByID(context.Background(), ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetUserByID(\"\") error = %v, want ErrValidation", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.GetUserByID(context.Background(), "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestValidateToken(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeUserRepo())
	res := register(t, svc, "a@x.com", "p1", "")

	if _, err := svc.ValidateToken(res.Token); err != nil {
		t.Errorf("ValidateToken(valid) error = %v", err)
	}
	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("ValidateToken(garbage) error = nil, want an error")
	}
}
