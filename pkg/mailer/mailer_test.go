package mailer

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	msg := string(BuildMessage("EcoHaven", "noreply@ecohaven.example", "ana@example.com", "Booking confirmed", "<p>See you</p>", at))

	for _, want := range []string{
		"From: EcoHaven <noreply@ecohaven.example>\r\n",
		"To: ana@example.com\r\n",
		"Subject: Booking confirmed\r\n",
		"Content-Type: text/html; charset=\"utf-8\"\r\n",
		"\r\n\r\n<p>See you</p>\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestNewWithoutHostLogsOnly(t *testing.T) {
	s := New(Config{}, nil)
	if _, ok := s.(*SMTP); ok {
		t.Fatal("New() without host returned SMTP sender")
	}
	if err := s.Send(context.Background(), "a@example.com", "hi", "<p>hi</p>"); err != nil {
		t.Errorf("Send() error = %v; want nil", err)
	}
}
