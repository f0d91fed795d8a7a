package config

import (
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kuitang/colornote/internal/ratelimit"
	"pgregory.net/rapid"
)

func validTestConfig() Config {
	return Config{
		NoS3:            true,
		MasterKey:       strings.Repeat("a", 64),
		DatabasePath:    "notes.db",
		RateLimitConfig: ratelimit.Config{RPS: 10, Burst: 20, CleanupInterval: time.Hour},
	}
}

func TestValidate_TestModeMinimalConfigPasses(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid test-mode config, got error: %v", err)
	}
}

func TestValidate_RequiresS3SecretsWhenNotFaked(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.NoS3 = false

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when real S3 is enabled without secrets")
	}
	msg := err.Error()
	for _, expected := range []string{
		"AWS_ENDPOINT_URL_S3",
		"BUCKET_NAME",
		"AWS_ACCESS_KEY_ID",
		"AWS_SECRET_ACCESS_KEY",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func testValidate_RejectsShortMasterKey(t *rapid.T) {
	cfg := validTestConfig()
	cfg.MasterKey = strings.Repeat("a", rapid.IntRange(1, 63).Draw(t, "master_key_len"))
	cfg.RateLimitConfig.Burst = rapid.IntRange(-5, 0).Draw(t, "burst")

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for short master key")
	}
	for _, token := range []string{"MASTER_KEY", "RATE_LIMIT_BURST"} {
		if !strings.Contains(err.Error(), token) {
			t.Fatalf("expected error mentioning %q, got: %v", token, err)
		}
	}
}

func TestValidate_RejectsShortMasterKey(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsShortMasterKey)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("MASTER_KEY", strings.Repeat("f", 64))
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DATABASE_PATH", "/tmp/colornote-test.db")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("AWS_ENDPOINT_URL_S3", "https://s3.example.test/")
	t.Setenv("BUCKET_NAME", "pics")
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_PUBLIC_URL", "")

	cfg, err := LoadConfig(Flags{Addr: ":7000"})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":7000" {
		t.Fatalf("--addr did not override LISTEN_ADDR: %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "/tmp/colornote-test.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.RateLimitConfig.RPS != 2.5 || cfg.RateLimitConfig.Burst != 7 {
		t.Fatalf("rate limit = %+v", cfg.RateLimitConfig)
	}
	if cfg.AWSPublicURL != "https://s3.example.test/pics" {
		t.Fatalf("derived public URL = %q", cfg.AWSPublicURL)
	}
}

func TestParseFlags_TestModeImpliesNoS3(t *testing.T) {
	t.Parallel()
	fs := flag.NewFlagSet("colornote", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	f, err := ParseFlags(fs, []string{"--test", "--addr", ":1234"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.NoS3 || f.Addr != ":1234" {
		t.Fatalf("flags = %+v", f)
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_FLOAT", "not-a-float")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseFloat64OrDefault("CFG_TEST_FLOAT", 3.5); got != 3.5 {
		t.Fatalf("parseFloat64OrDefault fallback mismatch: got=%v want=3.5", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
}

func TestGetEnvOrDefault_TrimsWhitespace(t *testing.T) {
	t.Setenv("CFG_TEST_STR", "   value   ")
	if got := getEnvOrDefault("CFG_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("getEnvOrDefault trim mismatch: got=%q want=%q", got, "value")
	}
}

func TestLoadStoreConfig_IgnoresServerSettings(t *testing.T) {
	t.Setenv("MASTER_KEY", strings.Repeat("0f", 32))
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("AWS_ENDPOINT_URL_S3", "")

	cfg, err := LoadStoreConfig()
	if err != nil {
		t.Fatalf("LoadStoreConfig: %v", err)
	}
	if cfg.DatabasePath != "colornote.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}

	key, err := cfg.DatabaseKey()
	if err != nil {
		t.Fatalf("DatabaseKey: %v", err)
	}
	again, _ := cfg.DatabaseKey()
	if len(key) != 32 || string(key) != string(again) {
		t.Fatalf("database key not a stable 32-byte key: %x", key)
	}

	t.Setenv("MASTER_KEY", "")
	if _, err := LoadStoreConfig(); err == nil || !strings.Contains(err.Error(), "MASTER_KEY") {
		t.Fatalf("missing master key err = %v", err)
	}
}
