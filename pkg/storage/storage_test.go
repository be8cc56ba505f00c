package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateImage(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        bool
	}{
		{"image/png", "leaf.png", true},
		{"image/jpeg", "leaf.JPG", true},
		{"image/jpg", "leaf.jpeg", true},
		{"", "leaf.webp", true},
		{"application/octet-stream", "leaf.gif", true},
		{"image/png", "leaf.jpg", false},
		{"video/mp4", "clip.mp4", false},
		{"", "notes.txt", false},
		{"image/png", "noext", false},
	}
	for _, tt := range tests {
		if got := ValidateImage(tt.contentType, tt.filename); got != tt.want {
			t.Errorf("ValidateImage(%q, %q) = %v; want %v", tt.contentType, tt.filename, got, tt.want)
		}
	}
}

func TestRandomKey(t *testing.T) {
	a := RandomKey(FolderEvents, "ev1", "My Photo.JPEG")
	b := RandomKey(FolderEvents, "ev1", "My Photo.JPEG")
	if a == b {
		t.Fatalf("RandomKey returned the same key twice: %q", a)
	}
	if !strings.HasPrefix(a, "events/ev1/") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("RandomKey() = %q; want events/ev1/<uuid>.jpg", a)
	}
	if strings.Contains(a, "Photo") {
		t.Errorf("RandomKey() = %q leaks the client filename", a)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	key := RandomKey(FolderProducts, "p1", "bottle.png")
	if err := l.Save(ctx, key, "image/png", strings.NewReader("png-bytes"), 9); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, ct, err := l.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png-bytes" || ct != "image/png" {
		t.Errorf("Open() = %q, %q; want png-bytes, image/png", data, ct)
	}
	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, _, err := l.Open(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after delete error = %v; want ErrNotFound", err)
	}
	if err := l.Delete(ctx, key); err != nil {
		t.Errorf("Delete() of missing key error = %v; want nil", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	for _, key := range []string{"../outside.png", "/etc/passwd", "."} {
		if err := l.Save(context.Background(), key, "image/png", strings.NewReader("x"), 1); err == nil {
			t.Errorf("Save(%q) error = nil; want error", key)
		}
	}
}
