package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database    DatabaseConfig
	School      SchoolConfig
	Embedding   EmbeddingConfig
	Recognition RecognitionConfig
	Attendance  AttendanceConfig
	Web         WebConfig
	LogMode     string
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// SchoolConfig points at the school information system used as the roster source.
type SchoolConfig struct {
	DatabaseURL string // MariaDB DSN (e.g., school:school@tcp(mariadb:3306)/school?parseTime=true)
}

type EmbeddingConfig struct {
	URL   string `yaml:"url"`   // face embedding server, defaults to http://localhost:8000
	Model string `yaml:"model"` // model name recorded next to each embedding
}

type RecognitionConfig struct {
	Threshold    float64 `yaml:"threshold"`
	EmbeddingDim int     `yaml:"embedding_dim"`
	MaxImageSide int     `yaml:"max_image_side"`
}

type AttendanceConfig struct {
	TimeZone    string `yaml:"timezone"`
	WindowStart string `yaml:"window_start"` // "HH:MM", empty disables the window
	WindowEnd   string `yaml:"window_end"`
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // kiosk front-end origins allowed by CORS
}

type defaults struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Attendance  AttendanceConfig  `yaml:"attendance"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float64, falling back to defaultVal
// when it is unset or not a number. Range checks are left to Validate.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var d defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		School: SchoolConfig{
			DatabaseURL: os.Getenv("SCHOOL_DATABASE_URL"),
		},
		Embedding: EmbeddingConfig{
			URL:   envString("EMBEDDING_URL", d.Embedding.URL),
			Model: envString("EMBEDDING_MODEL", d.Embedding.Model),
		},
		Recognition: RecognitionConfig{
			Threshold:    envFloat("FACE_SIMILARITY_THRESHOLD", d.Recognition.Threshold),
			EmbeddingDim: envInt("FACE_EMBEDDING_DIM", d.Recognition.EmbeddingDim),
			MaxImageSide: envInt("FACE_MAX_IMAGE_SIDE", d.Recognition.MaxImageSide),
		},
		Attendance: AttendanceConfig{
			TimeZone:    envString("ATTENDANCE_TIMEZONE", d.Attendance.TimeZone),
			WindowStart: envString("ATTENDANCE_WINDOW_START", d.Attendance.WindowStart),
			WindowEnd:   envString("ATTENDANCE_WINDOW_END", d.Attendance.WindowEnd),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		LogMode: envString("LOG_MODE", "development"),
	}
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	if c.Recognition.Threshold <= 0 || c.Recognition.Threshold > 1 {
		return fmt.Errorf("FACE_SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.Recognition.Threshold)
	}
	if _, err := c.Attendance.Location(); err != nil {
		return err
	}
	if _, _, err := c.Attendance.Window(); err != nil {
		return err
	}
	return nil
}

// Location resolves the reference time zone used for attendance day boundaries.
func (a *AttendanceConfig) Location() (*time.Location, error) {
	name := a.TimeZone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid ATTENDANCE_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// Window parses the optional attendance window as minutes after midnight.
// Both bounds are -1 when the window is disabled.
func (a *AttendanceConfig) Window() (start, end int, err error) {
	if a.WindowStart == "" && a.WindowEnd == "" {
		return -1, -1, nil
	}
	if a.WindowStart == "" || a.WindowEnd == "" {
		return -1, -1, errors.New("ATTENDANCE_WINDOW_START and ATTENDANCE_WINDOW_END must be set together")
	}
	start, err = parseClock(a.WindowStart)
	if err != nil {
		return -1, -1, fmt.Errorf("invalid ATTENDANCE_WINDOW_START: %w", err)
	}
	end, err = parseClock(a.WindowEnd)
	if err != nil {
		return -1, -1, fmt.Errorf("invalid ATTENDANCE_WINDOW_END: %w", err)
	}
	if end < start {
		return -1, -1, fmt.Errorf("attendance window ends (%s) before it starts (%s)", a.WindowEnd, a.WindowStart)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
