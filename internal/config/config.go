package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Image provider identifiers accepted by IMAGE_PROVIDER.
const (
	ImageProviderUnsplash    = "unsplash"
	ImageProviderFusionBrain = "fusionbrain"
	ImageProviderGemini      = "gemini"
	ImageProviderNone        = "none"
)

// ErrMissingCredential is returned when a required credential is not configured.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	TelegramBotToken string
	LogLevel         string
	LogDir           string

	// Quote provider
	QuoteAPIURL  string
	QuoteLang    string
	QuoteTimeout time.Duration

	// Image provider
	ImageProvider      string
	UnsplashAccessKey  string
	UnsplashAPIURL     string
	FusionBrainAPIURL  string
	FusionBrainKey     string
	FusionBrainSecret  string
	FusionBrainModel   string
	GeminiAPIKey       string
	GeminiImageModel   string
	ImageTimeout       time.Duration
	PollInterval       time.Duration
	PollMaxAttempts    int
	DownloadTimeout    time.Duration
	TempDir            string

	// Delivery
	Timezone       *time.Location
	SendRetryDelay time.Duration

	// Analytics
	PostgreDSN  string
	SQLitePath  string
	AdminChatID int64

	MetricsAddr string
	AssetsDir   string
}

func Load() (*Config, error) {
	// A missing .env is fine, the environment may be set by the process supervisor.
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:           getEnvOrDefault("LOG_DIR", "logs"),

		QuoteAPIURL: getEnvOrDefault("QUOTE_API_URL", "https://api.forismatic.com/api/1.0/"),
		QuoteLang:   getEnvOrDefault("QUOTE_LANG", "ru"),

		UnsplashAccessKey: os.Getenv("UNSPLASH_ACCESS_KEY"),
		UnsplashAPIURL:    getEnvOrDefault("UNSPLASH_API_URL", "https://api.unsplash.com"),
		FusionBrainAPIURL: getEnvOrDefault("FUSIONBRAIN_API_URL", "https://api-key.fusionbrain.ai"),
		FusionBrainKey:    os.Getenv("FUSIONBRAIN_KEY"),
		FusionBrainSecret: os.Getenv("FUSIONBRAIN_SECRET"),
		FusionBrainModel:  getEnvOrDefault("FUSIONBRAIN_PIPELINE", "Kandinsky"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiImageModel:  getEnvOrDefault("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
		TempDir:           getEnvOrDefault("TEMP_DIR", "temp"),

		PostgreDSN: os.Getenv("POSTGRE_DSN"),
		SQLitePath: os.Getenv("SQLITE_PATH"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
		AssetsDir:   getEnvOrDefault("ASSETS_DIR", "assets"),
	}

	var err error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"QUOTE_TIMEOUT", 5 * time.Second, &cfg.QuoteTimeout},
		{"IMAGE_TIMEOUT", 10 * time.Second, &cfg.ImageTimeout},
		{"GENERATION_POLL_INTERVAL", 5 * time.Second, &cfg.PollInterval},
		{"DOWNLOAD_TIMEOUT", 15 * time.Second, &cfg.DownloadTimeout},
		{"SEND_RETRY_DELAY", 500 * time.Millisecond, &cfg.SendRetryDelay},
	}
	for _, d := range durations {
		if *d.dest, err = getDurationOrDefault(d.key, d.def); err != nil {
			return nil, err
		}
	}

	if cfg.PollMaxAttempts, err = getIntOrDefault("GENERATION_MAX_ATTEMPTS", 10); err != nil {
		return nil, err
	}

	adminID, err := getIntOrDefault("ADMIN_CHAT_ID", 0)
	if err != nil {
		return nil, err
	}
	cfg.AdminChatID = int64(adminID)

	if cfg.Timezone, err = time.LoadLocation(getEnvOrDefault("TIMEZONE", "Local")); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	cfg.ImageProvider = strings.ToLower(os.Getenv("IMAGE_PROVIDER"))
	if cfg.ImageProvider == "" {
		cfg.ImageProvider = ImageProviderNone
		if cfg.UnsplashAccessKey != "" {
			cfg.ImageProvider = ImageProviderUnsplash
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("%w: required environment variable TELEGRAM_BOT_TOKEN is not set", ErrMissingCredential)
	}

	required := map[string]map[string]string{
		ImageProviderUnsplash: {
			"UNSPLASH_ACCESS_KEY": c.UnsplashAccessKey,
		},
		ImageProviderFusionBrain: {
			"FUSIONBRAIN_KEY":    c.FusionBrainKey,
			"FUSIONBRAIN_SECRET": c.FusionBrainSecret,
		},
		ImageProviderGemini: {
			"GEMINI_API_KEY": c.GeminiAPIKey,
		},
		ImageProviderNone: {},
	}

	creds, ok := required[c.ImageProvider]
	if !ok {
		return fmt.Errorf("unknown IMAGE_PROVIDER %q", c.ImageProvider)
	}
	for key, value := range creds {
		if value == "" {
			return fmt.Errorf("%w: %s is required for image provider %s", ErrMissingCredential, key, c.ImageProvider)
		}
	}

	if c.PollMaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be positive, got %d", c.PollMaxAttempts)
	}

	return nil
}

func (c *Config) HasDatabaseConfig() bool {
	return c.PostgreDSN != "" || c.SQLitePath != ""
}

// DatabaseDriver returns the sql driver name and DSN for the analytics store.
// Postgres wins when both are configured.
func (c *Config) DatabaseDriver() (driver, dsn string) {
	switch {
	case c.PostgreDSN != "":
		return "postgres", c.PostgreDSN
	case c.SQLitePath != "":
		return "sqlite", c.SQLitePath
	}
	return "", ""
}

func (c *Config) HasMetricsConfig() bool {
	return c.MetricsAddr != ""
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
