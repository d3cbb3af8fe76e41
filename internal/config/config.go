package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/damoang/angple-bans/pkg/logger"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
	Bans     BansConfig     `yaml:"bans"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	Mode           string `yaml:"mode"`            // development | production
	RequestTimeout int    `yaml:"request_timeout"` // seconds
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// BansConfig tunables for the ban engine
type BansConfig struct {
	ChunkSize       int  `yaml:"chunk_size"`
	DefaultPageSize int  `yaml:"default_page_size"`
	MaxPageSize     int  `yaml:"max_page_size"`
	CacheTTL        int  `yaml:"cache_ttl"` // seconds
	RejectPastEndAt bool `yaml:"reject_past_end_at"`
	// WriteRatePerMinute caps ban mutations per admin; 0 disables the limit
	WriteRatePerMinute int `yaml:"write_rate_per_minute"`
}

// CacheTTLDuration returns CacheTTL as a time.Duration
func (b BansConfig) CacheTTLDuration() time.Duration {
	return time.Duration(b.CacheTTL) * time.Second
}

// GetDSN builds the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "development"
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8082, Mode: "development", RequestTimeout: 15},
		Database: DatabaseConfig{
			Host: "localhost", Port: 3306, User: "root", DBName: "angple",
			MaxIdleConns: 10, MaxOpenConns: 50, ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		JWT:   JWTConfig{ExpiresIn: 900},
		CORS:  CORSConfig{AllowOrigins: "http://localhost:3000"},
		Bans: BansConfig{
			ChunkSize:       100,
			DefaultPageSize: 20,
			MaxPageSize:     200,
			CacheTTL:        30,

			WriteRatePerMinute: 60,
		},
	}
}

// LoadDotEnv loads .env files with priority: .env.local > .env
// godotenv.Load does NOT overwrite already-set env vars,
// so OS env vars always win, .env.local wins over .env.
func LoadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

// Load reads the YAML file at path over the defaults, then applies env overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("config file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate refuses configurations the server must not start with.
// Outside development a JWT secret is mandatory; in development an empty
// secret leaves the admin API rejecting every token.
func validate(cfg *Config) error {
	if cfg.JWT.Secret != "" {
		return nil
	}
	if !cfg.IsDevelopment() {
		return errors.New("jwt.secret (JWT_SECRET) is required outside development")
	}
	logger.Warn("jwt.secret is empty: admin API will reject every token")
	return nil
}

// LogResolved prints the effective (non-secret) configuration
func LogResolved(cfg *Config) {
	logger.GetLogger().Info().
		Int("port", cfg.Server.Port).
		Str("mode", cfg.Server.Mode).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Str("redis_host", cfg.Redis.Host).
		Int("ban_chunk_size", cfg.Bans.ChunkSize).
		Int("ban_max_page_size", cfg.Bans.MaxPageSize).
		Bool("ban_reject_past_end_at", cfg.Bans.RejectPastEndAt).
		Msg("config resolved")
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Mode, "SERVER_MODE")
	setInt(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")
	setInt(&cfg.Bans.ChunkSize, "BANS_CHUNK_SIZE")
	setInt(&cfg.Bans.CacheTTL, "BANS_CACHE_TTL")
	setInt(&cfg.Bans.WriteRatePerMinute, "BANS_WRITE_RATE_PER_MINUTE")
	if v := os.Getenv("BANS_REJECT_PAST_END_AT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Bans.RejectPastEndAt = b
		}
	}
}

func normalize(cfg *Config) {
	if cfg.Bans.ChunkSize <= 0 {
		cfg.Bans.ChunkSize = 100
	}
	if cfg.Bans.MaxPageSize <= 0 || cfg.Bans.MaxPageSize > 200 {
		cfg.Bans.MaxPageSize = 200
	}
	if cfg.Bans.DefaultPageSize <= 0 || cfg.Bans.DefaultPageSize > cfg.Bans.MaxPageSize {
		cfg.Bans.DefaultPageSize = 20
	}
	if cfg.Bans.CacheTTL < 0 {
		cfg.Bans.CacheTTL = 0
	}
	if cfg.Bans.WriteRatePerMinute < 0 {
		cfg.Bans.WriteRatePerMinute = 0
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
