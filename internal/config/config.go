// Package config loads colornote server configuration from CLI flags and
// environment variables, validates required fields, and fills in defaults.
//
// CLI flags choose which backing services are faked (--no-s3, --test).
// Environment variables provide secrets and service configuration.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/colornote/internal/crypto"
	"github.com/kuitang/colornote/internal/ratelimit"
)

const (
	defaultRegion     = "auto"
	defaultBucketName = "colornote-images"

	// databaseKeyName and databaseKeyVersion select the HKDF info string of
	// the database key. Bump the version to rotate.
	databaseKeyName    = "notes"
	databaseKeyVersion = 1
)

// Config holds all server configuration.
type Config struct {
	// Server settings
	ListenAddr string

	// Database and encryption
	MasterKey    string // hex, at least 64 characters (32 bytes)
	DatabasePath string // SQLCipher file holding every note

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// NoS3 serves images from an in-memory S3 (--no-s3).
	NoS3 bool

	// S3-compatible image storage
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
	AWSPublicURL       string // S3_PUBLIC_URL
}

// Flags are the parsed command-line flags.
type Flags struct {
	NoS3 bool
	Addr string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// ParseFlags registers --no-s3, --test and --addr on fs and parses args.
func ParseFlags(fs *flag.FlagSet, args []string) (Flags, error) {
	var f Flags
	var testMode bool
	fs.BoolVar(&f.NoS3, "no-s3", false, "Use in-memory S3 storage for images")
	fs.BoolVar(&testMode, "test", false, "Shorthand for --no-s3")
	fs.StringVar(&f.Addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if testMode {
		f.NoS3 = true
	}
	return f, nil
}

// LoadConfig loads configuration from environment variables and flag values.
// A non-empty f.Addr overrides LISTEN_ADDR.
func LoadConfig(f Flags) (*Config, error) {
	cfg := &Config{NoS3: f.NoS3}

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if f.Addr != "" {
		cfg.ListenAddr = f.Addr
	}

	cfg.MasterKey = getEnvOrDefault("MASTER_KEY", "")
	cfg.DatabasePath = getEnvOrDefault("DATABASE_PATH", "colornote.db")

	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")
	cfg.AWSBucketName = getEnvOrDefault("BUCKET_NAME", "")
	if cfg.NoS3 && cfg.AWSBucketName == "" {
		cfg.AWSBucketName = defaultBucketName
	}
	cfg.AWSPublicURL = getEnvOrDefault("S3_PUBLIC_URL", "")
	if cfg.AWSPublicURL == "" && cfg.AWSEndpointS3 != "" && cfg.AWSBucketName != "" {
		cfg.AWSPublicURL = strings.TrimRight(cfg.AWSEndpointS3, "/") + "/" + cfg.AWSBucketName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
// S3 credentials are required unless --no-s3 is set.
func (c *Config) Validate() error {
	var errs []string

	if !c.NoS3 {
		if c.AWSEndpointS3 == "" {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 is required (set env var or use --no-s3)")
		}
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required (set env var or use --no-s3)")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required (set env var or use --no-s3)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required (set env var or use --no-s3)")
		}
	}

	errs = append(errs, c.storeProblems()...)

	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (c *Config) storeProblems() []string {
	var errs []string
	// Losing MASTER_KEY makes the database unreadable; there is no default.
	if c.MasterKey == "" {
		errs = append(errs, "MASTER_KEY is required (generate with: openssl rand -hex 32)")
	} else if len(c.MasterKey) < 64 {
		errs = append(errs, "MASTER_KEY must be at least 64 hex characters (32 bytes)")
	}
	if c.DatabasePath == "" {
		errs = append(errs, "DATABASE_PATH must not be empty")
	}
	return errs
}

// LoadStoreConfig loads only the database settings (MASTER_KEY and
// DATABASE_PATH). The terminal editor uses it; it needs no server settings.
func LoadStoreConfig() (*Config, error) {
	cfg := &Config{
		MasterKey:    getEnvOrDefault("MASTER_KEY", ""),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", "colornote.db"),
	}
	if errs := cfg.storeProblems(); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// DatabaseKey derives the SQLCipher key for DatabasePath from MasterKey.
func (c *Config) DatabaseKey() ([]byte, error) {
	master, err := crypto.ParseMasterKey(c.MasterKey)
	if err != nil {
		return nil, err
	}
	return crypto.DeriveDatabaseKey(master, databaseKeyName, databaseKeyVersion), nil
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "colornote server starting...")

	if c.NoS3 {
		fmt.Fprintln(os.Stderr, "  Images:   In-memory S3 (--no-s3)")
	} else {
		fmt.Fprintf(os.Stderr, "  Images:   S3 (endpoint: %s, bucket: %s)\n", c.AWSEndpointS3, c.AWSBucketName)
	}
	fmt.Fprintf(os.Stderr, "  Database: %s (key from MASTER_KEY)\n", c.DatabasePath)
	fmt.Fprintf(os.Stderr, "  Limits:   %.1f rps, burst %d\n", c.RateLimitConfig.RPS, c.RateLimitConfig.Burst)
	fmt.Fprintf(os.Stderr, "  Listen:   %s\n", c.ListenAddr)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
