package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	Env        string
	LogLevel   string
	LLM        LLMConfig
	Session    SessionConfig
	Refinement RefinementConfig
	Export     ExportConfig
}

// LLMConfig selects the backend. An empty Model leaves the provider's own
// default in place.
type LLMConfig struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Timeout   time.Duration
	RPS       float64
	Burst     int
}

// Validate rejects settings no backend can run with. A missing API key is
// not an error here; generation reports it and falls back per stage.
func (c LLMConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout < 0 {
		return errors.New("LLM_TIMEOUT must not be negative")
	}
	if c.RPS < 0 || c.Burst < 0 {
		return errors.New("LLM_RPS and LLM_BURST must not be negative")
	}
	return nil
}

type SessionConfig struct {
	Max     int
	IdleTTL time.Duration
}

// RefinementConfig points at a YAML patch table replacing the embedded one.
type RefinementConfig struct {
	PatchFile string
}

type ExportConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

const (
	DefaultMaxTokens = 4096
	DefaultTimeout   = 120 * time.Second
	DefaultSessions  = 256
	DefaultIdleTTL   = 2 * time.Hour
)

// Load reads .env (when present), then the environment, then args. A -port
// flag in args wins over PORT.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("rapidproto", flag.ContinueOnError)
	port := fs.String("port", "", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	env := firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local")
	cfg := &Config{
		Port:     normalizePort(firstNonEmpty(*port, strings.TrimSpace(os.Getenv("PORT")), ":8080")),
		Env:      env,
		LogLevel: firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))), "info"),
	}

	var err error
	if cfg.LLM, err = loadLLMConfig(); err != nil {
		return nil, err
	}
	if cfg.Session, err = loadSessionConfig(); err != nil {
		return nil, err
	}
	cfg.Refinement = RefinementConfig{PatchFile: strings.TrimSpace(os.Getenv("REFINEMENT_PATCHES"))}
	cfg.Export, err = loadExportConfig(env)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), "anthropic"))
	c := LLMConfig{
		Provider: provider,
		APIKey:   APIKeyFor(provider),
		Model:    strings.TrimSpace(os.Getenv("LLM_MODEL")),
		BaseURL:  strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
	}
	var err error
	if c.MaxTokens, err = envInt("LLM_MAX_TOKENS", DefaultMaxTokens); err != nil {
		return c, err
	}
	if c.Timeout, err = envDuration("LLM_TIMEOUT", DefaultTimeout); err != nil {
		return c, err
	}
	if c.RPS, err = envFloat("LLM_RPS", 0); err != nil {
		return c, err
	}
	if c.Burst, err = envInt("LLM_BURST", 1); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// APIKeyFor reads the credential variable of the named provider.
func APIKeyFor(provider string) string {
	var key string
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		key = "GEMINI_API_KEY"
	case "openai":
		key = "OPENAI_API_KEY"
	case "fake":
		return ""
	default:
		key = "ANTHROPIC_API_KEY"
	}
	return strings.TrimSpace(os.Getenv(key))
}

func loadSessionConfig() (SessionConfig, error) {
	n, err := envInt("SESSION_MAX", DefaultSessions)
	if err != nil {
		return SessionConfig{}, err
	}
	if n <= 0 {
		return SessionConfig{}, fmt.Errorf("SESSION_MAX must be positive, got %d", n)
	}
	ttl, err := envDuration("SESSION_IDLE_TTL", DefaultIdleTTL)
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{Max: n, IdleTTL: ttl}, nil
}

func loadExportConfig(env string) (ExportConfig, error) {
	if isLocal(env) {
		return localExportConfig(), nil
	}
	useSSL, err := envBool("EXPORT_S3_USE_SSL", true)
	if err != nil {
		return ExportConfig{}, err
	}
	endpoint := strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT"))
	return ExportConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_REGION")), "us-east-1"),
		AccessKey: strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_KEY")),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")), "rapidproto-exports"),
		UseSSL:    useSSL,
	}, nil
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func normalizePort(p string) string {
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
