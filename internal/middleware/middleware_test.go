package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

type fakeAccounts map[uuid.UUID]*models.Account

func (f fakeAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := f[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return a, nil
}

type failingAccounts struct{}

func (failingAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, errors.New("connection refused")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newGuardedRouter(accounts fakeAccounts, guards ...gin.HandlerFunc) *gin.Engine {
	validate := func(token string) (uuid.UUID, error) {
		return uuid.Parse(token)
	}
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(validate, accounts)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		response.OK(c, gin.H{"account_id": CurrentSession(c).AccountID})
	})
	r.GET("/p", handlers...)
	return r
}

func do(r http.Handler, header string) (*httptest.ResponseRecorder, response.Body) {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body response.Body
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestGuards(t *testing.T) {
	user := &models.Account{ID: uuid.New(), Role: models.RoleUser, Status: models.AccountActive}
	staff := &models.Account{ID: uuid.New(), Role: models.RoleStaff, Status: models.AccountActive}
	admin := &models.Account{ID: uuid.New(), Role: models.RoleAdmin, Status: models.AccountActive}
	disabled := &models.Account{ID: uuid.New(), Role: models.RoleStaff, Status: models.AccountInactive}
	accounts := fakeAccounts{user.ID: user, staff.ID: staff, admin.ID: admin, disabled.ID: disabled}

	tests := []struct {
		name     string
		guards   []gin.HandlerFunc
		header   string
		status   int
		wantCode string
	}{
		{"missing header", nil, "", http.StatusUnauthorized, ""},
		{"not bearer", nil, "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", nil, "Bearer nope", http.StatusUnauthorized, ""},
		{"unknown account", nil, "Bearer " + uuid.NewString(), http.StatusUnauthorized, ""},
		{"authenticated user", nil, "Bearer " + user.ID.String(), http.StatusOK, ""},
		{"inactive account forces logout", nil, "Bearer " + disabled.ID.String(), http.StatusForbidden, CodeAccountInactive},
		{"user on staff route", []gin.HandlerFunc{RequireStaff()}, "Bearer " + user.ID.String(), http.StatusForbidden, ""},
		{"staff on staff route", []gin.HandlerFunc{RequireStaff()}, "Bearer " + staff.ID.String(), http.StatusOK, ""},
		{"admin on staff route", []gin.HandlerFunc{RequireStaff()}, "Bearer " + admin.ID.String(), http.StatusOK, ""},
		{"staff on admin route", []gin.HandlerFunc{RequireRole(models.RoleAdmin)}, "Bearer " + staff.ID.String(), http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(newGuardedRouter(accounts, tt.guards...), tt.header)
			if w.Code != tt.status {
				t.Fatalf("status = %d; want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q; want %q", body.Code, tt.wantCode)
			}
		})
	}
}

func TestJWTLookupFailureKeepsSession(t *testing.T) {
	r := gin.New()
	r.GET("/p", JWT(func(token string) (uuid.UUID, error) { return uuid.Parse(token) }, failingAccounts{}),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	w, body := do(r, "Bearer "+uuid.NewString())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if body.Code == CodeAccountInactive {
		t.Errorf("code = %q; a lookup failure must not force a logout", body.Code)
	}
}

func TestRequireRoleWithoutSession(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })
	w, _ := do(r, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d; want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin for unknown origin = %q; want empty", got)
	}
}
