package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	c := Defaults()
	c.JWTSecret = "0123456789abcdef0123"
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "defaults with secret",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "missing JWT secret",
			mutate:      func(c *Config) { c.JWTSecret = "" },
			wantErr:     true,
			errorString: "JWT_SECRET is required",
		},
		{
			name:        "short JWT secret",
			mutate:      func(c *Config) { c.JWTSecret = "short" },
			wantErr:     true,
			errorString: "JWT_SECRET must be at least 16 characters",
		},
		{
			name:        "invalid cache backend",
			mutate:      func(c *Config) { c.CacheBackend = "memcached" },
			wantErr:     true,
			errorString: "invalid cache backend 'memcached': must be one of [memory redis]",
		},
		{
			name:        "redis without url",
			mutate:      func(c *Config) { c.CacheBackend = "redis"; c.RedisURL = "" },
			wantErr:     true,
			errorString: "REDIS_URL is required",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP URL without queue",
			mutate:      func(c *Config) { c.AMQPURL = "amqp://localhost:5672/"; c.AMQPQueue = "" },
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name:        "spreadsheet without credentials",
			mutate:      func(c *Config) { c.GoogleSpreadsheetID = "abc" },
			wantErr:     true,
			errorString: "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE",
		},
		{
			name: "spreadsheet with missing credentials file",
			mutate: func(c *Config) {
				c.GoogleSpreadsheetID = "abc"
				c.GoogleServiceAccountFile = "/non/existent/file.json"
			},
			wantErr:     true,
			errorString: "Google service account file does not exist",
		},
		{
			name:        "mirror batch too large",
			mutate:      func(c *Config) { c.MirrorBatchSize = 2000 },
			wantErr:     true,
			errorString: "invalid mirror batch size 2000: must be at most 1000",
		},
		{
			name:        "mirror interval too short",
			mutate:      func(c *Config) { c.MirrorInterval = 500 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid mirror interval 500ms: must be at least 1 second",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitPerSecond = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0: must be positive",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "organify.db")
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err, tt.errorString)
				}
				return
			}
			if err != nil {
				t.Errorf("Config.Validate() error = %v", err)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	if n := strings.Count(err.Error(), "\n- "); n < 5 {
		t.Fatalf("expected many problems reported at once, got %d: %v", n, err)
	}
}

func TestConfig_ValidateWithServiceAccountFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	cfg := validConfig()
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "organify.db")
	cfg.GoogleSpreadsheetID = "abc"
	cfg.GoogleServiceAccountFile = file
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		for _, key := range []string{"PORT", "SQLITE_DB_PATH", "CACHE_BACKEND", "CACHE_TTL", "MIRROR_BATCH_SIZE", "RATE_LIMIT_PER_SECOND"} {
			t.Setenv(key, "")
		}
		cfg := Load()
		want := Defaults()

		if cfg.Port != want.Port {
			t.Errorf("Load() Port = %v, want %v", cfg.Port, want.Port)
		}
		if cfg.SQLiteDBPath != "./data/organify.db" {
			t.Errorf("Load() SQLiteDBPath = %v", cfg.SQLiteDBPath)
		}
		if cfg.CacheBackend != "memory" || cfg.CacheTTL != 5*time.Minute {
			t.Errorf("Load() cache = %v %v", cfg.CacheBackend, cfg.CacheTTL)
		}
		if cfg.MirrorBatchSize != 50 || cfg.RateLimitPerSecond != 10 {
			t.Errorf("Load() worker/ratelimit = %v %v", cfg.MirrorBatchSize, cfg.RateLimitPerSecond)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		t.Setenv("CACHE_BACKEND", "redis")
		t.Setenv("CACHE_TTL", "1m")
		t.Setenv("MIRROR_BATCH_SIZE", "25")
		t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
		t.Setenv("JWT_SECRET", "  padded-secret-value  ")

		cfg := Load()
		if cfg.Port != "9090" || cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() = %+v", cfg)
		}
		if cfg.CacheBackend != "redis" || cfg.CacheTTL != time.Minute {
			t.Errorf("Load() cache = %v %v", cfg.CacheBackend, cfg.CacheTTL)
		}
		if cfg.MirrorBatchSize != 25 || cfg.RateLimitPerSecond != 2.5 {
			t.Errorf("Load() = %v %v", cfg.MirrorBatchSize, cfg.RateLimitPerSecond)
		}
		if cfg.JWTSecret != "padded-secret-value" {
			t.Errorf("Load() JWTSecret = %q", cfg.JWTSecret)
		}
		// Unset keys still come from defaults.
		if cfg.LogFormat != "text" || cfg.AMQPExchange != "organify" {
			t.Errorf("Load() defaults not merged: %+v", cfg)
		}
	})
}

func TestAddr(t *testing.T) {
	c := Config{Port: "8081"}
	if c.Addr() != ":8081" {
		t.Fatalf("Addr() = %q", c.Addr())
	}
}
