// Package config handles configuration for the repopix server: defaults,
// an optional JSON file, environment variables and command-line flags,
// applied in that order.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the repopix server.
//
// RepoToken is the repository-write token the server acts with. APISecret,
// Password/PasswordHash and the OAuth client settings select which kinds of
// caller credentials the write proxy accepts. SessionKey signs password
// session tokens; an empty key is replaced with a random one at startup, so
// sessions do not survive a restart.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	RepoOwner  string
	RepoName   string
	Branch     string
	RepoToken  string
	GitHubAPI  string
	GitHubWeb  string
	OAuthID    string
	OAuthKey   string
	OAuthRedir string

	APISecret    string
	Password     string
	PasswordHash string
	SessionKey   string
	SessionTTL   time.Duration

	AllowedOrigins []string

	TinifyAPIKey string
	TinifyAPI    string

	RequestTimeout time.Duration
}

// DefaultAllowedOrigins are used when ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"https://hoochanlon.github.io",
	"https://blog.hoochanlon.moe",
	"https://picx-images-hosting-brown.vercel.app",
	"http://localhost:3000",
	"http://localhost:8000",
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.RepoOwner = "hoochanlon"
	c.RepoName = "picx-images-hosting"
	c.Branch = "master"
	c.GitHubAPI = "https://api.github.com"
	c.GitHubWeb = "https://github.com"
	c.SessionTTL = 24 * time.Hour
	c.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	c.TinifyAPI = "https://api.tinify.com"
	c.RequestTimeout = 30 * time.Second
}

// PasswordConfigured reports whether password sessions can be issued.
func (c *Config) PasswordConfigured() bool {
	return c.Password != "" || c.PasswordHash != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseEnv(cfg)
	parseFlags(cfg, os.Args[1:])
	return cfg
}
