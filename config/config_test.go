package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UPLOAD_BACKEND", "")
	t.Setenv("PORT", "")
	t.Setenv("UPLOAD_MAX_BYTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q; want 8080", cfg.Server.Port)
	}
	if cfg.Uploads.Backend != "local" {
		t.Errorf("Uploads.Backend = %q; want local", cfg.Uploads.Backend)
	}
	if cfg.Uploads.MaxBytes != 1<<20 {
		t.Errorf("Uploads.MaxBytes = %d; want %d", cfg.Uploads.MaxBytes, 1<<20)
	}
}

func TestLoadRejectsUnknownUploadBackend(t *testing.T) {
	t.Setenv("UPLOAD_BACKEND", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil; want error for unknown backend")
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "url wins",
			cfg:  DatabaseConfig{URL: "postgres://db/eco", Host: "ignored"},
			want: "postgres://db/eco",
		},
		{
			name: "built from parts",
			cfg:  DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "eco", SSLMode: "disable"},
			want: "postgres://u:p@h:5432/eco?sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q; want %q", got, tt.want)
			}
		})
	}
}
