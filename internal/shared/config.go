package shared

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override the Spotify client credentials.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Sort        SortConfig        `toml:"sort"`
	Reorder     ReorderConfig     `toml:"reorder"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify OAuth2 application credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server and session cookie settings.
type ServerConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	CookieAuthKey       string `toml:"cookie_auth_key"`
	CookieEncryptionKey string `toml:"cookie_encryption_key"`
	CookieSecure        bool   `toml:"cookie_secure"`
}

// SpotifyAPIConfig tunes the remote catalog client.
type SpotifyAPIConfig struct {
	APIURL         string   `toml:"api_url"`
	BatchLimit     int      `toml:"batch_limit"`
	RateLimit      float64  `toml:"rate_limit"`
	RateBurst      int      `toml:"rate_burst"`
	RetryAttempts  int      `toml:"retry_attempts"`
	RetryBaseDelay Duration `toml:"retry_base_delay"`
	Timeout        Duration `toml:"timeout"`
}

// SortConfig configures the collation used to order track names.
type SortConfig struct {
	Locale string `toml:"locale"`
}

// ReorderConfig configures the reorder orchestrator.
type ReorderConfig struct {
	InFlightTTL Duration `toml:"in_flight_ttl"`
}

// Duration is a [time.Duration] that reads and writes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CookieKeys decodes the base64 cookie keys. Missing keys are returned as nil.
func (s ServerConfig) CookieKeys() (authKey, encKey []byte, err error) {
	if s.CookieAuthKey != "" {
		if authKey, err = base64.StdEncoding.DecodeString(s.CookieAuthKey); err != nil {
			return nil, nil, fmt.Errorf("%w: cookie_auth_key: %v", ErrInvalidConfig, err)
		}
	}
	if s.CookieEncryptionKey != "" {
		if encKey, err = base64.StdEncoding.DecodeString(s.CookieEncryptionKey); err != nil {
			return nil, nil, fmt.Errorf("%w: cookie_encryption_key: %v", ErrInvalidConfig, err)
		}
	}
	return authKey, encKey, nil
}

// Tag parses the configured collation locale, falling back to [language.Und].
func (s SortConfig) Tag() language.Tag {
	tag, err := language.Parse(s.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides the Spotify client credentials from the environment when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}

// Validate checks the settings required to talk to Spotify.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if sp.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri must be set", ErrInvalidConfig)
	}
	if c.Spotify.BatchLimit <= 0 || c.Spotify.BatchLimit > 100 {
		return fmt.Errorf("%w: spotify batch_limit must be between 1 and 100", ErrInvalidConfig)
	}
	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
