package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
)

var (
	ErrTooLarge     = errors.New("file exceeds the upload size limit")
	ErrInvalidImage = errors.New("invalid file type: only jpg, png, webp and gif are allowed")
)

// SaveImage validates an uploaded picture and stores it under a random key in folder/owner.
// It returns the new key.
func SaveImage(ctx context.Context, store Store, folder, owner string, fh *multipart.FileHeader, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = MaxUploadSize
	}
	if fh.Size > maxBytes {
		return "", ErrTooLarge
	}
	if !ValidateImage(fh.Header.Get("Content-Type"), fh.Filename) {
		return "", ErrInvalidImage
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := RandomKey(folder, owner, fh.Filename)
	if err := store.Save(ctx, key, ContentTypeForFilename(fh.Filename), f, fh.Size); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return key, nil
}
