package config

import (
	"os"
	"strconv"
)

// Config carries every environment-derived knob. It is loaded once in main
// and passed down; nothing below main reads the environment directly.
type Config struct {
	APIAddr     string
	DatabaseURL string
	RedisAddr   string

	// Webhook signature verification. Empty secret disables it.
	WebhookSecret string

	// Optional project allow-list. Advisory: mismatches are accepted but not stored.
	FilterByProject bool
	ExpectedProject string

	// GlitchTip read API, used to enrich chat-format webhooks.
	GlitchTipAPIToken string
	GlitchTipBaseURL  string

	// Downstream resolve service.
	ResolveServiceEnabled bool
	ResolveServiceURL     string
	ResolveServiceToken   string
	TrackerQueue          string

	// Optional raw-payload archive (MinIO/S3).
	MinioEndpoint  string
	MinioBucket    string
	MinioAccessKey string
	MinioSecretKey string
}

func Load() Config {
	return Config{
		APIAddr:     getenv("API_ADDR", ":8000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		FilterByProject: getbool("FILTER_BY_PROJECT"),
		ExpectedProject: os.Getenv("EXPECTED_PROJECT"),

		GlitchTipAPIToken: os.Getenv("GLITCHTIP_API_TOKEN"),
		GlitchTipBaseURL:  os.Getenv("GLITCHTIP_BASE_URL"),

		ResolveServiceEnabled: getbool("RESOLVE_SERVICE_ENABLED"),
		ResolveServiceURL:     os.Getenv("RESOLVE_SERVICE_URL"),
		ResolveServiceToken:   os.Getenv("RESOLVE_SERVICE_TOKEN"),
		TrackerQueue:          getenv("TRACKER_QUEUE", "errors"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioBucket:    os.Getenv("MINIO_BUCKET"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
	}
}

// ArchiveEnabled reports whether the optional payload archive is configured.
func (c Config) ArchiveEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioBucket != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
