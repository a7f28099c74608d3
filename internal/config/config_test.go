package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"FACE_SIMILARITY_THRESHOLD", "FACE_EMBEDDING_DIM", "FACE_MAX_IMAGE_SIDE",
		"ATTENDANCE_TIMEZONE", "EMBEDDING_URL",
	} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %v", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.EmbeddingDim != 512 {
		t.Errorf("expected default embedding dim 512, got %d", cfg.Recognition.EmbeddingDim)
	}
	if cfg.Recognition.MaxImageSide != 640 {
		t.Errorf("expected default max image side 640, got %d", cfg.Recognition.MaxImageSide)
	}
	if cfg.Attendance.TimeZone != "UTC" {
		t.Errorf("expected default timezone UTC, got %q", cfg.Attendance.TimeZone)
	}
	if cfg.Embedding.URL != "http://localhost:8000" {
		t.Errorf("expected default embedding URL, got %q", cfg.Embedding.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_CustomThreshold(t *testing.T) {
	t.Setenv("FACE_SIMILARITY_THRESHOLD", "0.45")

	cfg := Load()

	if cfg.Recognition.Threshold != 0.45 {
		t.Errorf("expected threshold 0.45, got %v", cfg.Recognition.Threshold)
	}
}

func TestLoad_InvalidThresholdFallsBack(t *testing.T) {
	t.Setenv("FACE_SIMILARITY_THRESHOLD", "high")

	cfg := Load()

	if cfg.Recognition.Threshold != 0.6 {
		t.Errorf("expected default threshold for invalid input, got %v", cfg.Recognition.Threshold)
	}
}

func TestLoad_InvalidEmbeddingDim(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"non-numeric", "invalid"},
		{"negative", "-100"},
		{"zero", "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("FACE_EMBEDDING_DIM", tc.value)

			cfg := Load()

			if cfg.Recognition.EmbeddingDim != 512 {
				t.Errorf("expected default embedding dim 512 for %q, got %d", tc.value, cfg.Recognition.EmbeddingDim)
			}
		})
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", "https://kiosk.school.example, ,https://office.school.example")

	got := Load().Web.AllowedOrigins

	if len(got) != 2 || got[0] != "https://kiosk.school.example" || got[1] != "https://office.school.example" {
		t.Errorf("unexpected allowed origins %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"threshold zero", func(c *Config) { c.Recognition.Threshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.Recognition.Threshold = 1.2 }, true},
		{"threshold one", func(c *Config) { c.Recognition.Threshold = 1 }, false},
		{"bad timezone", func(c *Config) { c.Attendance.TimeZone = "Mars/Olympus" }, true},
		{"named timezone", func(c *Config) { c.Attendance.TimeZone = "Europe/Prague" }, false},
		{"half window", func(c *Config) { c.Attendance.WindowStart = "08:00" }, true},
		{"inverted window", func(c *Config) {
			c.Attendance.WindowStart = "10:00"
			c.Attendance.WindowEnd = "08:00"
		}, true},
		{"malformed window", func(c *Config) {
			c.Attendance.WindowStart = "8am"
			c.Attendance.WindowEnd = "10:00"
		}, true},
		{"valid window", func(c *Config) {
			c.Attendance.WindowStart = "08:00"
			c.Attendance.WindowEnd = "10:00"
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Recognition: RecognitionConfig{Threshold: 0.6},
				Attendance:  AttendanceConfig{TimeZone: "UTC"},
			}
			tc.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAttendanceWindow(t *testing.T) {
	a := AttendanceConfig{WindowStart: "08:00", WindowEnd: "10:30"}

	start, end, err := a.Window()
	if err != nil {
		t.Fatalf("Window() failed: %v", err)
	}
	if start != 480 || end != 630 {
		t.Errorf("expected window 480-630, got %d-%d", start, end)
	}

	disabled := AttendanceConfig{}
	start, end, err = disabled.Window()
	if err != nil {
		t.Fatalf("Window() failed for disabled window: %v", err)
	}
	if start != -1 || end != -1 {
		t.Errorf("expected disabled window -1/-1, got %d/%d", start, end)
	}
}
