package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

const (
	// MaxUploadSize is the default cap for event pictures and product images (1MB).
	MaxUploadSize = 1 << 20
	// FolderEvents is the key prefix for event pictures.
	FolderEvents = "events"
	// FolderProducts is the key prefix for reward product images.
	FolderProducts = "products"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("object not found")

// AllowedImageExtensions maps accepted picture extensions to their MIME type.
var AllowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Store saves and serves uploaded pictures. Implemented by Local and S3.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// ValidateImage reports whether filename (and optional content type) is an accepted picture.
func ValidateImage(contentType, filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	want, ok := AllowedImageExtensions[ext]
	if !ok {
		return false
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return ct == want || (ct == "image/jpg" && want == "image/jpeg")
}

// ContentTypeForFilename returns the MIME type for a picture filename extension.
func ContentTypeForFilename(filename string) string {
	if ct, ok := AllowedImageExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// RandomKey returns folder/{owner}/{random}.{ext}; the client filename only contributes its extension.
func RandomKey(folder, owner, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	return path.Join(folder, owner, uuid.New().String()+ext)
}
