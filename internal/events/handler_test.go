package events

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memEvents struct {
	byID map[uuid.UUID]*models.Event
}

func (m *memEvents) Create(ctx context.Context, e *models.Event) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEvents) List(ctx context.Context, f Filter) ([]models.Event, error) {
	out := []models.Event{}
	for _, e := range m.byID {
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memEvents) Update(ctx context.Context, e *models.Event) error {
	if _, ok := m.byID[e.ID]; !ok {
		return ErrEventNotFound
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) SetPicture(ctx context.Context, id uuid.UUID, key string) (string, error) {
	e, ok := m.byID[id]
	if !ok {
		return "", ErrEventNotFound
	}
	prev := e.PictureKey
	e.PictureKey = key
	return prev, nil
}

func (m *memEvents) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memEvents) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	repo := &memEvents{byID: map[uuid.UUID]*models.Event{}}
	h := NewHandler(repo, store, storage.MaxUploadSize, nil)
	staff := func(c *gin.Context) {
		c.Set(middleware.ContextSession, &middleware.Session{AccountID: uuid.New(), Role: models.RoleStaff})
	}
	r := gin.New()
	r.GET("/api/events", h.List)
	r.GET("/api/events/:id", h.GetByID)
	r.POST("/api/events", staff, h.Create)
	r.POST("/api/events/:id/picture", staff, h.UploadPicture)
	r.GET("/api/event-picture/:eventId", h.Picture)
	return r, repo
}

func createEvent(r http.Handler, req EventRequest) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(raw))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httpReq)
	return w
}

func validEvent() EventRequest {
	return EventRequest{
		Name: "Beach Cleanup", Category: "recycling", Location: "East Coast Park",
		StartDate: "2026-06-01", EndDate: "2026-06-03", Status: "Paid", AmountCents: 1500, LeafPoints: 20,
	}
}

func TestCreateEventValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EventRequest)
		status int
	}{
		{"valid", func(*EventRequest) {}, http.StatusCreated},
		{"end before start", func(r *EventRequest) { r.EndDate = "2026-05-31" }, http.StatusBadRequest},
		{"bad date", func(r *EventRequest) { r.StartDate = "01/06/2026" }, http.StatusBadRequest},
		{"paid without amount", func(r *EventRequest) { r.AmountCents = 0 }, http.StatusBadRequest},
		{"unknown category", func(r *EventRequest) { r.Category = "concert" }, http.StatusBadRequest},
		{"single day", func(r *EventRequest) { r.EndDate = r.StartDate }, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t)
			req := validEvent()
			tt.mutate(&req)
			if w := createEvent(r, req); w.Code != tt.status {
				t.Errorf("status = %d; want %d (%s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestCreateFreeEventDropsAmount(t *testing.T) {
	r, repo := newTestRouter(t)
	req := validEvent()
	req.Status = "Free"
	if w := createEvent(r, req); w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201", w.Code)
	}
	for _, e := range repo.byID {
		if e.AmountCents != 0 {
			t.Errorf("AmountCents = %d; want 0 for free event", e.AmountCents)
		}
	}
}

func uploadPicture(r http.Handler, eventID uuid.UUID, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="picture"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(h)
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/events/"+eventID.String()+"/picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPictureUpload(t *testing.T) {
	r, repo := newTestRouter(t)
	if w := createEvent(r, validEvent()); w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var id uuid.UUID
	for k := range repo.byID {
		id = k
	}

	if w := uploadPicture(r, id, "big.png", "image/png", make([]byte, storage.MaxUploadSize+1)); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload status = %d; want 413", w.Code)
	}
	if w := uploadPicture(r, id, "notes.txt", "text/plain", []byte("hi")); w.Code != http.StatusBadRequest {
		t.Errorf("text upload status = %d; want 400", w.Code)
	}
	if w := uploadPicture(r, id, "leaf.png", "image/png", []byte("png-data")); w.Code != http.StatusOK {
		t.Fatalf("upload status = %d; want 200 (%s)", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, PictureURL(id), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("picture status = %d; want 200", w.Code)
	}
	if w.Body.String() != "png-data" {
		t.Errorf("picture body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q; want image/png", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events/"+id.String(), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if !bytes.Contains(w.Body.Bytes(), []byte(PictureURL(id))) {
		t.Errorf("event response missing picture_url: %s", w.Body.String())
	}
}
