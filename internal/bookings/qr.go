package bookings

import (
	"net/url"
	"strings"

	"github.com/ecohaven/backend/pkg/utils"
)

const (
	tokenBytes = 16
	qrSize     = "250x250"
)

// NewToken returns an opaque check-in token of 32 hex characters.
func NewToken() (string, error) {
	return utils.RandomHex(tokenBytes)
}

// QRCodeURL returns the image URL rendering token on the QR service at base.
func QRCodeURL(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	q := url.Values{}
	q.Set("size", qrSize)
	q.Set("data", token)
	return base + sep + q.Encode()
}
