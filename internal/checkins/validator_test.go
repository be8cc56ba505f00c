package checkins

import (
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
	"github.com/ecohaven/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore mirrors the conditional update of the repository under a mutex.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]*models.CheckIn
	cancelled map[string]bool // booking ids
	balances  map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		rows:      map[string]*models.CheckIn{},
		cancelled: map[string]bool{},
		balances:  map[uuid.UUID]int{},
	}
}

func (m *memStore) add(ci models.CheckIn) {
	ci.ID = uuid.New()
	ci.QRCodeStatus = models.CheckInNotChecked
	m.rows[ci.QRCodeText] = &ci
}

func (m *memStore) Consume(ctx context.Context, token string) (*models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.rows[token]
	switch {
	case !ok:
		return nil, ErrTokenNotFound
	case ci.QRCodeChecked:
		return nil, ErrAlreadyCheckedIn
	case m.cancelled[ci.BookingID]:
		return nil, ErrBookingCancelled
	}
	now := time.Now()
	ci.QRCodeChecked = true
	ci.QRCodeStatus = models.CheckInChecked
	ci.CheckInTime = &now
	if ci.AccountID != nil {
		m.balances[*ci.AccountID] += ci.LeafPoints
	}
	cp := *ci
	return &cp, nil
}

func (m *memStore) Preview(ctx context.Context, token string) (*Preview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ci, ok := m.rows[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	status := models.BookingActive
	if m.cancelled[ci.BookingID] {
		status = models.BookingCancelled
	}
	return &Preview{CheckIn: *ci, EventName: "Beach Cleanup", BookingStatus: status}, nil
}

func (m *memStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CheckIn
	for _, ci := range m.rows {
		if ci.EventID == eventID {
			out = append(out, *ci)
		}
	}
	return out, nil
}

type feedRecorder struct {
	mu    sync.Mutex
	items []FeedItem
}

func (f *feedRecorder) PublishCheckIn(eventID uuid.UUID, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, payload.(FeedItem))
}

func TestCheckInCreditsOnce(t *testing.T) {
	store := newMemStore()
	feed := &feedRecorder{}
	accountID := uuid.New()
	eventID := uuid.New()
	store.add(models.CheckIn{BookingID: "b1", EventID: eventID, AccountID: &accountID, AttendeeName: "Ana", QRCodeText: "tok", LeafPoints: 20})
	v := NewValidator(store, feed, nil)

	ci, err := v.CheckIn(context.Background(), "tok", uuid.New())
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if !ci.QRCodeChecked || ci.QRCodeStatus != models.CheckInChecked || ci.CheckInTime == nil {
		t.Errorf("check-in not marked: %+v", ci)
	}
	if _, err := v.CheckIn(context.Background(), "tok", uuid.New()); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("second CheckIn() error = %v; want ErrAlreadyCheckedIn", err)
	}
	if got := store.balances[accountID]; got != 20 {
		t.Errorf("balance = %d; want 20", got)
	}
	if len(feed.items) != 1 || feed.items[0].BookingID != "b1" {
		t.Errorf("feed items = %+v; want one for b1", feed.items)
	}
}

func TestConcurrentScansConsumeOnce(t *testing.T) {
	store := newMemStore()
	accountID := uuid.New()
	store.add(models.CheckIn{BookingID: "b1", AccountID: &accountID, QRCodeText: "tok", LeafPoints: 5})
	v := NewValidator(store, nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.CheckIn(context.Background(), "tok", uuid.New()); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 1 {
		t.Errorf("successful scans = %d; want 1", ok)
	}
	if got := store.balances[accountID]; got != 5 {
		t.Errorf("balance = %d; want 5", got)
	}
}

func TestCheckInErrors(t *testing.T) {
	store := newMemStore()
	store.add(models.CheckIn{BookingID: "gone", QRCodeText: "cancelled"})
	store.cancelled["gone"] = true
	v := NewValidator(store, nil, nil)

	tests := []struct {
		token string
		want  error
	}{
		{"", ErrEmptyToken},
		{"   ", ErrEmptyToken},
		{"unknown", ErrTokenNotFound},
		{"cancelled", ErrBookingCancelled},
	}
	for _, tt := range tests {
		if _, err := v.CheckIn(context.Background(), tt.token, uuid.New()); !errors.Is(err, tt.want) {
			t.Errorf("CheckIn(%q) error = %v; want %v", tt.token, err, tt.want)
		}
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	store := newMemStore()
	store.add(models.CheckIn{BookingID: "b1", QRCodeText: "tok"})
	h := NewHandler(NewValidator(store, nil, nil), nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextSession, &middleware.Session{AccountID: uuid.New(), Role: models.RoleStaff})
	})
	r.POST("/api/checkins", h.CheckIn)
	r.GET("/api/checkins/:token", h.Preview)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/checkins", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if got := post(`{"token":"tok"}`); got != http.StatusOK {
		t.Errorf("first scan status = %d; want 200", got)
	}
	if got := post(`{"token":"tok"}`); got != http.StatusConflict {
		t.Errorf("second scan status = %d; want 409", got)
	}
	if got := post(`{"token":"nope"}`); got != http.StatusNotFound {
		t.Errorf("unknown token status = %d; want 404", got)
	}
	if got := post(`{}`); got != http.StatusBadRequest {
		t.Errorf("missing token status = %d; want 400", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/checkins/tok", nil))
	var body struct {
		response.Body
		Data Preview `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Data.QRCodeChecked || body.Data.EventName != "Beach Cleanup" {
		t.Errorf("preview = %+v", body.Data)
	}
}
