package volunteers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.RegisterGin()
}

type memStore struct {
	byID map[uuid.UUID]*models.Volunteer
}

func (m *memStore) Create(ctx context.Context, v *models.Volunteer) error {
	for _, e := range m.byID {
		if strings.EqualFold(e.Email, v.Email) {
			return ErrDuplicateEmail
		}
	}
	v.ID = uuid.New()
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memStore) List(ctx context.Context) ([]models.Volunteer, error) {
	var out []models.Volunteer
	for _, v := range m.byID {
		out = append(out, *v)
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, v *models.Volunteer) error {
	if _, ok := m.byID[v.ID]; !ok {
		return ErrVolunteerNotFound
	}
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return ErrVolunteerNotFound
	}
	delete(m.byID, id)
	return nil
}

func TestSignUp(t *testing.T) {
	h := NewHandler(&memStore{byID: map[uuid.UUID]*models.Volunteer{}}, nil)
	r := gin.New()
	r.POST("/volunteer", h.SignUp)
	r.DELETE("/volunteer/:id", h.Delete)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/volunteer", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	valid := `{"name":"Ana","email":"ana@example.com","phone":"91234567","interests":["gardening"],"availability":"2026-11-01"}`
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", valid, http.StatusCreated},
		{"duplicate email", strings.Replace(valid, "ana@", "ANA@", 1), http.StatusConflict},
		{"bad phone", strings.Replace(valid, "91234567", "9123", 1), http.StatusBadRequest},
		{"no interests", strings.Replace(valid, `["gardening"]`, `[]`, 1), http.StatusBadRequest},
		{"bad date", strings.Replace(valid, "2026-11-01", "01/11/2026", 1), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := post(tt.body); got != tt.want {
				t.Errorf("status = %d; want %d", got, tt.want)
			}
		})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/volunteer/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("delete unknown status = %d; want 404", w.Code)
	}
}
