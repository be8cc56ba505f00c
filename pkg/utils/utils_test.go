package utils

import (
	"regexp"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("leafy-secret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "leafy-secret" {
		t.Fatal("HashPassword() returned the plain password")
	}
	if !CheckPassword("leafy-secret", hash) {
		t.Error("CheckPassword(correct) = false; want true")
	}
	if CheckPassword("wrong", hash) {
		t.Error("CheckPassword(wrong) = true; want false")
	}
}

func TestRandomGenerators(t *testing.T) {
	tests := []struct {
		name    string
		gen     func() (string, error)
		pattern string
	}{
		{"hex", func() (string, error) { return RandomHex(16) }, `^[0-9a-f]{32}$`},
		{"digits", func() (string, error) { return RandomDigits(6) }, `^[0-9]{6}$`},
		{"code", func() (string, error) { return RandomCode(8) }, `^[A-Z2-7]{8}$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := regexp.MustCompile(tt.pattern)
			seen := make(map[string]bool)
			for i := 0; i < 50; i++ {
				got, err := tt.gen()
				if err != nil {
					t.Fatalf("error = %v", err)
				}
				if !re.MatchString(got) {
					t.Fatalf("%q does not match %s", got, tt.pattern)
				}
				seen[got] = true
			}
			if tt.name != "digits" && len(seen) < 50 {
				t.Errorf("got %d distinct values out of 50", len(seen))
			}
		})
	}
}
