// Package mconfig holds the client's configuration surface: every recognized
// option, its default, and the layered-source loader that applies them in
// the documented precedence order.
package mconfig

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config enumerates every recognized configuration option.
type Config struct {
	ServiceURL string `koanf:"service_url"`
	AppID      string `koanf:"app_id"`
	Team       string `koanf:"team"`

	Timeout time.Duration `koanf:"timeout"`

	ReportTelemetry bool          `koanf:"report_telemetry"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`

	AuthMethod               string `koanf:"auth_method"` // "kerberos" | "jwt" | ""
	KerberosServicePrincipal string `koanf:"kerberos_service_principal"`
	JWTToken                 string `koanf:"jwt_token"`
	JWTTokenEnv              string `koanf:"jwt_token_env"`
	JWTTokenFile             string `koanf:"jwt_token_file"`

	SnowflakeUser           string `koanf:"snowflake_user"`
	SnowflakePassword       string `koanf:"snowflake_password"`
	SnowflakePrivateKeyPath string `koanf:"snowflake_private_key_path"`

	OracleUser     string `koanf:"oracle_user"`
	OraclePassword string `koanf:"oracle_password"`

	MSSQLUser     string `koanf:"mssql_user"`
	MSSQLPassword string `koanf:"mssql_password"`

	Credentials map[string]string `koanf:"credentials"`

	DeprecationEnabled bool `koanf:"deprecation_enabled"`
	WarnOnDeprecated   bool `koanf:"warn_on_deprecated"`
	// DeprecationCallback is set programmatically, never from a config file.
	DeprecationCallback func(path, message, successor string) `koanf:"-"`

	RetryMaxAttempts   int     `koanf:"retry_max_attempts"`
	RetryBackoffFactor float64 `koanf:"retry_backoff_factor"`
	RetryStatusCodes   []int   `koanf:"retry_status_codes"`
}

// Defaults returns the configuration's documented zero-state.
func Defaults() *Config {
	return &Config{
		Timeout:            30 * time.Second,
		ReportTelemetry:    true,
		CacheTTL:           60 * time.Second,
		DeprecationEnabled: false,
		WarnOnDeprecated:   true,
		RetryMaxAttempts:   3,
		RetryBackoffFactor: 0.5,
		RetryStatusCodes:   []int{502, 503, 504},
	}
}

// searchPaths returns the two fixed discovery locations: a user-level file
// under the home directory and a project-level file in the working
// directory, in that order (lowest to highest precedence among files).
func searchPaths() []string {
	paths := make([]string, 0, 2)

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".moniker", "client.yaml"))
	}

	paths = append(paths, ".moniker.yaml")

	return paths
}

// Load builds a Config by layering, lowest to highest precedence: built-in
// defaults, the user-level file, the project-level file, an explicit file
// (explicitPath, ignored if empty), environment variables prefixed
// MONIKER_, and finally overrides, applied last and taking ultimate
// precedence.
func Load(explicitPath string, overrides *Config) (*Config, error) {
	k := koanf.New(".")

	defaults := Defaults()
	if err := k.Load(confmap.Provider(structToMap(defaults), "."), nil); err != nil {
		return nil, err
	}

	paths := searchPaths()
	if explicitPath != "" {
		paths = append(paths, explicitPath)
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue // a missing file at a discovery location is not an error
		}
		if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("MONIKER_", ".", envKeyTransform), nil); err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	applyOverrides(cfg, overrides)

	return cfg, nil
}

func envKeyTransform(s string) string {
	return toSnakeLower(trimPrefix(s, "MONIKER_"))
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func toSnakeLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		out[i] = c
	}
	return string(out)
}

// structToMap is a minimal field-by-field projection used to seed koanf
// with the compiled-in defaults; it only covers the scalar/string/slice
// fields koanf needs for layering, not the programmatic-only callback.
func structToMap(c *Config) map[string]any {
	return map[string]any{
		"service_url":          c.ServiceURL,
		"app_id":               c.AppID,
		"team":                 c.Team,
		"timeout":              c.Timeout,
		"report_telemetry":     c.ReportTelemetry,
		"cache_ttl":            c.CacheTTL,
		"auth_method":          c.AuthMethod,
		"deprecation_enabled":  c.DeprecationEnabled,
		"warn_on_deprecated":   c.WarnOnDeprecated,
		"retry_max_attempts":   c.RetryMaxAttempts,
		"retry_backoff_factor": c.RetryBackoffFactor,
		"retry_status_codes":   c.RetryStatusCodes,
	}
}

// applyOverrides copies every non-zero field of overrides onto cfg; this is
// the final, highest-precedence layer (explicit constructor arguments).
func applyOverrides(cfg *Config, overrides *Config) {
	if overrides == nil {
		return
	}

	if overrides.ServiceURL != "" {
		cfg.ServiceURL = overrides.ServiceURL
	}
	if overrides.AppID != "" {
		cfg.AppID = overrides.AppID
	}
	if overrides.Team != "" {
		cfg.Team = overrides.Team
	}
	if overrides.Timeout != 0 {
		cfg.Timeout = overrides.Timeout
	}
	if overrides.CacheTTL != 0 {
		cfg.CacheTTL = overrides.CacheTTL
	}
	if overrides.AuthMethod != "" {
		cfg.AuthMethod = overrides.AuthMethod
	}
	if overrides.KerberosServicePrincipal != "" {
		cfg.KerberosServicePrincipal = overrides.KerberosServicePrincipal
	}
	if overrides.JWTToken != "" {
		cfg.JWTToken = overrides.JWTToken
	}
	if overrides.JWTTokenEnv != "" {
		cfg.JWTTokenEnv = overrides.JWTTokenEnv
	}
	if overrides.JWTTokenFile != "" {
		cfg.JWTTokenFile = overrides.JWTTokenFile
	}
	if overrides.SnowflakeUser != "" {
		cfg.SnowflakeUser = overrides.SnowflakeUser
	}
	if overrides.SnowflakePassword != "" {
		cfg.SnowflakePassword = overrides.SnowflakePassword
	}
	if overrides.SnowflakePrivateKeyPath != "" {
		cfg.SnowflakePrivateKeyPath = overrides.SnowflakePrivateKeyPath
	}
	if overrides.OracleUser != "" {
		cfg.OracleUser = overrides.OracleUser
	}
	if overrides.OraclePassword != "" {
		cfg.OraclePassword = overrides.OraclePassword
	}
	if overrides.MSSQLUser != "" {
		cfg.MSSQLUser = overrides.MSSQLUser
	}
	if overrides.MSSQLPassword != "" {
		cfg.MSSQLPassword = overrides.MSSQLPassword
	}
	if len(overrides.Credentials) > 0 {
		cfg.Credentials = overrides.Credentials
	}
	if overrides.DeprecationCallback != nil {
		cfg.DeprecationCallback = overrides.DeprecationCallback
	}
	if overrides.RetryMaxAttempts != 0 {
		cfg.RetryMaxAttempts = overrides.RetryMaxAttempts
	}
	if overrides.RetryBackoffFactor != 0 {
		cfg.RetryBackoffFactor = overrides.RetryBackoffFactor
	}
	if len(overrides.RetryStatusCodes) > 0 {
		cfg.RetryStatusCodes = overrides.RetryStatusCodes
	}

	// booleans have no meaningful "unset" zero value distinct from false,
	// so report_telemetry/deprecation_enabled/warn_on_deprecated are only
	// overridden via the env/file layers, never silently by a zero-value
	// struct passed as overrides.
}

// GetCredential resolves a credential by source-type key, first from the
// dedicated typed field, then from the free-form Credentials map.
func (c *Config) GetCredential(sourceType, key string) (string, bool) {
	switch sourceType {
	case "oracle":
		if key == "user" {
			return c.OracleUser, c.OracleUser != ""
		}
		if key == "password" {
			return c.OraclePassword, c.OraclePassword != ""
		}
	case "snowflake":
		switch key {
		case "user":
			return c.SnowflakeUser, c.SnowflakeUser != ""
		case "password":
			return c.SnowflakePassword, c.SnowflakePassword != ""
		case "private_key_path":
			return c.SnowflakePrivateKeyPath, c.SnowflakePrivateKeyPath != ""
		}
	case "mssql":
		if key == "user" {
			return c.MSSQLUser, c.MSSQLUser != ""
		}
		if key == "password" {
			return c.MSSQLPassword, c.MSSQLPassword != ""
		}
	}

	v, ok := c.Credentials[sourceType+"_"+key]
	return v, ok
}
