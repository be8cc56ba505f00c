package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/queue"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/utils"
	"github.com/ecohaven/backend/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterGin(); err != nil {
		panic(err)
	}
}

type memAccounts struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Account
}

func newMemAccounts(accs ...*models.Account) *memAccounts {
	m := &memAccounts{byID: map[uuid.UUID]*models.Account{}}
	for _, a := range accs {
		m.byID[a.ID] = a
	}
	return m
}

func (m *memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memAccounts) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if strings.EqualFold(a.Email, login) || a.Username == login {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memAccounts) List(ctx context.Context) ([]models.AccountPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AccountPublic
	for _, a := range m.byID {
		out = append(out, a.ToPublic())
	}
	return out, nil
}

func (m *memAccounts) Create(ctx context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if strings.EqualFold(e.Email, a.Email) {
			return ErrEmailTaken
		}
		if e.Username == a.Username {
			return ErrUsernameTaken
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) UpdateProfile(ctx context.Context, id uuid.UUID, name, username, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Name, a.Username, a.Phone = name, username, phone
	return nil
}

func (m *memAccounts) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (m *memAccounts) SetStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Status = status
	return nil
}

type memResetStore struct {
	codes    map[string]string
	attempts map[string]int
	tokens   map[string]uuid.UUID
}

func newMemResetStore() *memResetStore {
	return &memResetStore{codes: map[string]string{}, attempts: map[string]int{}, tokens: map[string]uuid.UUID{}}
}

func (s *memResetStore) SaveCode(ctx context.Context, flow, email, code string, ttl time.Duration) error {
	s.codes[codeKey(flow, email)] = code
	delete(s.attempts, attemptsKey(flow, email))
	return nil
}

func (s *memResetStore) ConsumeCode(ctx context.Context, flow, email, code string) (bool, error) {
	k := codeKey(flow, email)
	if stored, ok := s.codes[k]; ok && stored == code {
		delete(s.codes, k)
		delete(s.attempts, attemptsKey(flow, email))
		return true, nil
	}
	return false, nil
}

func (s *memResetStore) RecordFailure(ctx context.Context, flow, email string, ttl time.Duration) (int, error) {
	k := attemptsKey(flow, email)
	s.attempts[k]++
	return s.attempts[k], nil
}

func (s *memResetStore) DropCode(ctx context.Context, flow, email string) error {
	delete(s.codes, codeKey(flow, email))
	delete(s.attempts, attemptsKey(flow, email))
	return nil
}

func (s *memResetStore) SaveToken(ctx context.Context, flow, token string, accountID uuid.UUID, ttl time.Duration) error {
	s.tokens[tokenKey(flow, token)] = accountID
	return nil
}

func (s *memResetStore) TakeToken(ctx context.Context, flow, token string) (uuid.UUID, error) {
	k := tokenKey(flow, token)
	id, ok := s.tokens[k]
	if !ok {
		return uuid.Nil, ErrInvalidResetToken
	}
	delete(s.tokens, k)
	return id, nil
}

type memEmails struct {
	sent []queue.EmailPayload
	err  error
}

func (m *memEmails) EnqueueEmail(ctx context.Context, p queue.EmailPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, p)
	return nil
}

func newAccount(t *testing.T, email string, role models.Role, status models.AccountStatus) *models.Account {
	t.Helper()
	hash, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	return &models.Account{
		ID:           uuid.New(),
		Name:         "Test " + string(role),
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
	}
}

func postJSON(r http.Handler, path string, body interface{}) (*httptest.ResponseRecorder, response.Body) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemAccounts()
	h := NewHandler(store, NewJWTService("test-secret", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	reg := map[string]string{
		"name": "Alice Tan", "username": "alice", "phone": "91234567",
		"email": "alice@example.com", "password": "secret123", "role": "admin",
	}
	w, _ := postJSON(r, "/auth/register", reg)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d; want 201 (%s)", w.Code, w.Body.String())
	}
	acc, err := store.GetByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("account not stored: %v", err)
	}
	if acc.Role != models.RoleUser {
		t.Errorf("registered role = %q; want %q", acc.Role, models.RoleUser)
	}

	w, _ = postJSON(r, "/auth/register", reg)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d; want 409", w.Code)
	}

	tests := []struct {
		name   string
		login  string
		pass   string
		status int
	}{
		{"by email", "alice@example.com", "secret123", http.StatusOK},
		{"by username", "alice", "secret123", http.StatusOK},
		{"wrong password", "alice", "nope-nope", http.StatusUnauthorized},
		{"unknown", "bob", "secret123", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := postJSON(r, "/auth/login", LoginRequest{Login: tt.login, Password: tt.pass})
			if w.Code != tt.status {
				t.Errorf("login status = %d; want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	h := NewHandler(newMemAccounts(), NewJWTService("s", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	w, _ := postJSON(r, "/auth/register", map[string]string{
		"name": "Bob", "username": "bob", "phone": "1234", "email": "bob@example.com", "password": "secret123",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", w.Code)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	acc := newAccount(t, "carol@example.com", models.RoleUser, models.AccountInactive)
	h := NewHandler(newMemAccounts(acc), NewJWTService("s", 1), nil)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	w, body := postJSON(r, "/auth/login", LoginRequest{Login: acc.Email, Password: "secret123"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want 403", w.Code)
	}
	if body.Code != middleware.CodeAccountInactive {
		t.Errorf("code = %q; want %q", body.Code, middleware.CodeAccountInactive)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("s", 1)
	id := uuid.New()
	token, err := svc.Generate(id, "a@example.com", "staff")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	got, err := svc.AccountID(token)
	if err != nil || got != id {
		t.Errorf("AccountID() = %v, %v; want %v", got, err, id)
	}
	if _, err := NewJWTService("other", 1).AccountID(token); err == nil {
		t.Error("AccountID() with wrong secret error = nil")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	user := newAccount(t, "dan@example.com", models.RoleUser, models.AccountActive)
	staff := newAccount(t, "erin@example.com", models.RoleStaff, models.AccountActive)
	accounts := newMemAccounts(user, staff)
	store := newMemResetStore()
	emails := &memEmails{}
	svc := NewResetService(accounts, store, emails, 15*time.Minute, nil)
	ctx := context.Background()

	if err := svc.Forgot(ctx, UserFlow, "nobody@example.com"); err != nil {
		t.Fatalf("Forgot(unknown) error = %v", err)
	}
	if err := svc.Forgot(ctx, UserFlow, staff.Email); err != nil {
		t.Fatalf("Forgot(staff on user flow) error = %v", err)
	}
	if len(emails.sent) != 0 {
		t.Fatalf("emails sent = %d; want 0", len(emails.sent))
	}

	if err := svc.Forgot(ctx, UserFlow, user.Email); err != nil {
		t.Fatalf("Forgot() error = %v", err)
	}
	if len(emails.sent) != 1 || emails.sent[0].EmailType != models.EmailTypePasswordReset {
		t.Fatalf("emails = %+v; want one password reset", emails.sent)
	}
	code := store.codes[codeKey(UserFlow.Name, user.Email)]
	if len(code) != 6 || !strings.Contains(emails.sent[0].BodyHTML, code) {
		t.Fatalf("code %q missing from email", code)
	}

	if _, err := svc.Verify(ctx, StaffFlow, user.Email, code); err != ErrInvalidCode {
		t.Errorf("Verify(staff flow) error = %v; want ErrInvalidCode", err)
	}
	token, err := svc.Verify(ctx, UserFlow, user.Email, code)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := svc.Verify(ctx, UserFlow, user.Email, code); err != ErrInvalidCode {
		t.Errorf("second Verify() error = %v; want ErrInvalidCode", err)
	}

	if err := svc.Reset(ctx, UserFlow, token, "newsecret1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := svc.Reset(ctx, UserFlow, token, "again1234"); err != ErrInvalidResetToken {
		t.Errorf("second Reset() error = %v; want ErrInvalidResetToken", err)
	}
	got, _ := accounts.GetByID(ctx, user.ID)
	if !utils.CheckPassword("newsecret1", got.PasswordHash) {
		t.Error("password was not updated")
	}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func TestResetCodeDiesAfterFailedGuesses(t *testing.T) {
	user := newAccount(t, "fay@example.com", models.RoleUser, models.AccountActive)
	store := newMemResetStore()
	svc := NewResetService(newMemAccounts(user), store, &memEmails{}, 15*time.Minute, nil)
	ctx := context.Background()

	if err := svc.Forgot(ctx, UserFlow, user.Email); err != nil {
		t.Fatalf("Forgot() error = %v", err)
	}
	code := store.codes[codeKey(UserFlow.Name, user.Email)]
	for i := 0; i < maxCodeAttempts; i++ {
		if _, err := svc.Verify(ctx, UserFlow, user.Email, wrongCode(code)); err != ErrInvalidCode {
			t.Fatalf("wrong guess %d error = %v; want ErrInvalidCode", i+1, err)
		}
	}
	if _, err := svc.Verify(ctx, UserFlow, user.Email, code); err != ErrInvalidCode {
		t.Fatalf("Verify(correct code after %d failures) error = %v; want ErrInvalidCode", maxCodeAttempts, err)
	}

	if err := svc.Forgot(ctx, UserFlow, user.Email); err != nil {
		t.Fatalf("Forgot() error = %v", err)
	}
	code = store.codes[codeKey(UserFlow.Name, user.Email)]
	for i := 0; i < maxCodeAttempts-1; i++ {
		_, _ = svc.Verify(ctx, UserFlow, user.Email, wrongCode(code))
	}
	if _, err := svc.Verify(ctx, UserFlow, user.Email, code); err != nil {
		t.Errorf("Verify(correct code under the limit) error = %v", err)
	}
}

func TestForgotSucceedsWhenEmailQueueFails(t *testing.T) {
	user := newAccount(t, "gus@example.com", models.RoleUser, models.AccountActive)
	store := newMemResetStore()
	svc := NewResetService(newMemAccounts(user), store, &memEmails{err: errors.New("redis down")}, 15*time.Minute, nil)
	r := gin.New()
	r.POST("/auth/password/forgot", NewResetHandler(svc, UserFlow).Forgot)

	w, _ := postJSON(r, "/auth/password/forgot", ForgotRequest{Email: user.Email})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (%s)", w.Code, w.Body.String())
	}
	if _, ok := store.codes[codeKey(UserFlow.Name, user.Email)]; !ok {
		t.Error("reset code was not stored")
	}
}
