package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	AuthSecret string        `yaml:"auth_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`

	CORSOrigins []string `yaml:"cors_origins"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console|json

	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig carries the access-control defaults a course may override.
type EngineConfig struct {
	AttemptLimit       int     `yaml:"attempt_limit"`
	PassThreshold      float64 `yaml:"pass_threshold"`
	QuizSize           int     `yaml:"quiz_size"`
	ViolationThreshold int     `yaml:"violation_threshold"`
}

// Load reads an optional YAML file (CONFIG_FILE or the path argument) and
// then applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return Config{}, fmt.Errorf("unsupported db driver: %q", cfg.DBDriver)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Mode:        ModeDev,
		HTTPAddr:    ":8080",
		DBDriver:    "sqlite",
		AuthSecret:  "dev-only-secret",
		TokenTTL:    8 * time.Hour,
		CORSOrigins: []string{"http://localhost:3000"},
		LogLevel:    "info",
		LogFormat:   "console",
		Engine: EngineConfig{
			AttemptLimit:       3,
			PassThreshold:      0.5,
			QuizSize:           10,
			ViolationThreshold: 3,
		},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MODE"); v != "" {
		c.Mode = Mode(v)
	}
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.AuthSecret = envOr("AUTH_HMAC_SECRET", c.AuthSecret)
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.TokenTTL = d
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitCSV(v)
	}
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.Engine.AttemptLimit = envInt("ENGINE_ATTEMPT_LIMIT", c.Engine.AttemptLimit)
	c.Engine.QuizSize = envInt("ENGINE_QUIZ_SIZE", c.Engine.QuizSize)
	c.Engine.ViolationThreshold = envInt("ENGINE_VIOLATION_THRESHOLD", c.Engine.ViolationThreshold)
	if v := os.Getenv("ENGINE_PASS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.PassThreshold = f
		}
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
