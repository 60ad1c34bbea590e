package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the visavis service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	AllowAnyOrigin bool

	IdentityStorePath    string
	RecognitionThreshold float64
	EnrollAttempts       int
	EnrollTimeout        time.Duration

	CameraSource    string
	CameraMJPEGURL  string
	CaptureInterval time.Duration
	FrameWidth      int
	FrameHeight     int

	Detector        string
	PigoCascadePath string

	PresenceTTL time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "visavis"),
		LogLevel:          envOrDefault("APP_LOG_LEVEL", "info"),
		AllowAnyOrigin:    false,
		IdentityStorePath: envOrDefault("IDENTITY_STORE_PATH", "identities.json"),
		// Lower is more strict; matches the usual face-encoder tolerance.
		RecognitionThreshold: 0.6,
		EnrollAttempts:       10,
		CameraSource:         envOrDefault("CAMERA_SOURCE", "sim"),
		CameraMJPEGURL:       stringsTrimSpace("CAMERA_MJPEG_URL"),
		Detector:             envOrDefault("DETECTOR", "auto"),
		PigoCascadePath:      stringsTrimSpace("PIGO_CASCADE_PATH"),
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:      15 * time.Second,
		EnrollTimeout:        10 * time.Second,
		CaptureInterval:      50 * time.Millisecond,
		PresenceTTL:          5 * time.Second,
		FrameWidth:           640,
		FrameHeight:          480,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureInterval, err = durationFromEnv("CAPTURE_INTERVAL", cfg.CaptureInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.EnrollTimeout, err = durationFromEnv("ENROLL_TIMEOUT", cfg.EnrollTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PresenceTTL, err = durationFromEnv("PRESENCE_TTL", cfg.PresenceTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.RecognitionThreshold, err = floatFromEnv("RECOGNITION_THRESHOLD", cfg.RecognitionThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.EnrollAttempts, err = intFromEnv("ENROLL_ATTEMPTS", cfg.EnrollAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.FrameWidth, err = intFromEnv("CAMERA_FRAME_WIDTH", cfg.FrameWidth)
	if err != nil {
		return Config{}, err
	}
	cfg.FrameHeight, err = intFromEnv("CAMERA_FRAME_HEIGHT", cfg.FrameHeight)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.IdentityStorePath) == "" {
		return Config{}, fmt.Errorf("IDENTITY_STORE_PATH must not be empty")
	}
	if cfg.RecognitionThreshold <= 0 {
		return Config{}, fmt.Errorf("RECOGNITION_THRESHOLD must be positive")
	}
	if cfg.EnrollAttempts <= 0 {
		return Config{}, fmt.Errorf("ENROLL_ATTEMPTS must be positive")
	}
	if cfg.CaptureInterval < 10*time.Millisecond {
		return Config{}, fmt.Errorf("CAPTURE_INTERVAL must be at least 10ms")
	}
	if cfg.PresenceTTL < time.Second {
		return Config{}, fmt.Errorf("PRESENCE_TTL must be at least 1s")
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return Config{}, fmt.Errorf("camera frame dimensions must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.CameraSource)) {
	case "sim":
	case "mjpeg":
		if cfg.CameraMJPEGURL == "" {
			return Config{}, fmt.Errorf("CAMERA_SOURCE=mjpeg requires CAMERA_MJPEG_URL")
		}
	default:
		return Config{}, fmt.Errorf("invalid CAMERA_SOURCE: %q (expected sim|mjpeg)", cfg.CameraSource)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Detector)) {
	case "auto", "stub":
	case "pigo":
		if cfg.PigoCascadePath == "" {
			return Config{}, fmt.Errorf("DETECTOR=pigo requires PIGO_CASCADE_PATH")
		}
	default:
		return Config{}, fmt.Errorf("invalid DETECTOR: %q (expected auto|pigo|stub)", cfg.Detector)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
