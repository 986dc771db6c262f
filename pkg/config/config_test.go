package config

import (
	"testing"
	"time"

	"github.com/platinummonkey/gatehouse/pkg/cache"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "true string", envValue: "true", want: true},
		{name: "one string", envValue: "1", want: true},
		{name: "mixed case", envValue: "TRUE", want: true},
		{name: "false string", envValue: "false", defaultValue: true, want: false},
		{name: "unset uses default", envValue: "", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_BOOL_VAR", tt.envValue)
			}

			got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue int
		envValue     string
		want         int
	}{
		{name: "valid integer", envValue: "42", want: 42},
		{name: "negative integer", envValue: "-3", want: -3},
		{name: "invalid integer uses default", envValue: "not-a-number", defaultValue: 7, want: 7},
		{name: "unset uses default", envValue: "", defaultValue: 7, want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_INT_VAR", tt.envValue)
			}

			got := getEnvInt("TEST_INT_VAR", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvInt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{name: "valid duration", envValue: "30s", want: 30 * time.Second},
		{name: "compound duration", envValue: "1h30m", want: 90 * time.Minute},
		{name: "invalid duration uses default", envValue: "soon", defaultValue: time.Minute, want: time.Minute},
		{name: "unset uses default", envValue: "", defaultValue: time.Minute, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_DURATION_VAR", tt.envValue)
			}

			got := getEnvDuration("TEST_DURATION_VAR", tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseServiceTokens(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  map[string]string
	}{
		{
			name:  "empty",
			value: "",
			want:  map[string]string{},
		},
		{
			name:  "single pair",
			value: "billing:secret1",
			want:  map[string]string{"billing": "secret1"},
		},
		{
			name:  "multiple pairs with whitespace",
			value: "billing:secret1, reports:secret2",
			want:  map[string]string{"billing": "secret1", "reports": "secret2"},
		},
		{
			name:  "malformed entries skipped",
			value: "billing:secret1,broken,:nosecret,noid:",
			want:  map[string]string{"billing": "secret1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseServiceTokens(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("parseServiceTokens() = %v, want %v", got, tt.want)
			}
			for id, secret := range tt.want {
				if got[id] != secret {
					t.Errorf("parseServiceTokens()[%q] = %q, want %q", id, got[id], secret)
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "empty", value: "", want: nil},
		{name: "single", value: "anonymous", want: []string{"anonymous"}},
		{name: "trims whitespace", value: "anonymous, connected ,role", want: []string{"anonymous", "connected", "role"}},
		{name: "skips blanks", value: "anonymous,,role", want: []string{"anonymous", "role"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitList(tt.value)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("splitList()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GATEHOUSE_POSTGRES_URL", "postgres://localhost/gatehouse")
	t.Setenv("GATEHOUSE_SIGNING_KEY", "test-signing-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 12h", cfg.Auth.TokenTTL)
	}
	if len(cfg.Auth.ChainModules) != 6 || cfg.Auth.ChainModules[0] != "anonymous" {
		t.Errorf("Auth.ChainModules = %v, want full default chain", cfg.Auth.ChainModules)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("Postgres.MaxConns = %d, want 25", cfg.Postgres.MaxConns)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("Observability.LogLevel = %q, want info", cfg.Observability.LogLevel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GATEHOUSE_POSTGRES_URL", "postgres://db.internal/gatehouse")
	t.Setenv("GATEHOUSE_SIGNING_KEY", "test-signing-key")
	t.Setenv("GATEHOUSE_PORT", "9000")
	t.Setenv("GATEHOUSE_TOKEN_TTL", "1h")
	t.Setenv("GATEHOUSE_CHAIN_MODULES", "anonymous,internal_service,claims")
	t.Setenv("GATEHOUSE_SERVICE_TOKENS", "billing:s1,reports:s2")
	t.Setenv("GATEHOUSE_LICENSE_PROVIDER_URL", "https://licenses.internal")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9000" {
		t.Errorf("Server.Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if len(cfg.Auth.ChainModules) != 3 || cfg.Auth.ChainModules[2] != "claims" {
		t.Errorf("Auth.ChainModules = %v, want claims chain", cfg.Auth.ChainModules)
	}
	if cfg.Auth.ServiceTokens["reports"] != "s2" {
		t.Errorf("Auth.ServiceTokens = %v, want reports:s2", cfg.Auth.ServiceTokens)
	}
	if cfg.Licensing.BaseURL != "https://licenses.internal" {
		t.Errorf("Licensing.BaseURL = %q", cfg.Licensing.BaseURL)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: "8080"},
			Postgres: postgres.Config{URL: "postgres://localhost/gatehouse"},
			Redis:    cache.Config{URL: "redis://localhost:6379/0"},
			Auth: AuthConfig{
				SigningKey:   "key",
				TokenTTL:     time.Hour,
				ChainModules: []string{"anonymous"},
				RegistryDir:  "registry",
			},
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("missing server port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		if err := cfg.Validate(); err == nil || err.Error() != "server port is required" {
			t.Errorf("Validate() error = %v, want 'server port is required'", err)
		}
	})

	t.Run("missing postgres URL", func(t *testing.T) {
		cfg := valid()
		cfg.Postgres.URL = ""
		if err := cfg.Validate(); err == nil || err.Error() != "postgres URL is required" {
			t.Errorf("Validate() error = %v, want 'postgres URL is required'", err)
		}
	})

	t.Run("missing signing key", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.SigningKey = ""
		if err := cfg.Validate(); err == nil || err.Error() != "token signing key is required" {
			t.Errorf("Validate() error = %v, want 'token signing key is required'", err)
		}
	})

	t.Run("non-positive token TTL", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.TokenTTL = 0
		if err := cfg.Validate(); err == nil || err.Error() != "token TTL must be positive" {
			t.Errorf("Validate() error = %v, want 'token TTL must be positive'", err)
		}
	})

	t.Run("empty chain", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.ChainModules = nil
		if err := cfg.Validate(); err == nil || err.Error() != "at least one chain module is required" {
			t.Errorf("Validate() error = %v, want 'at least one chain module is required'", err)
		}
	})

	t.Run("missing registry dir", func(t *testing.T) {
		cfg := valid()
		cfg.Auth.RegistryDir = ""
		if err := cfg.Validate(); err == nil || err.Error() != "registry directory is required" {
			t.Errorf("Validate() error = %v, want 'registry directory is required'", err)
		}
	})
}
