// Package config loads settings for the repopix command-line client:
// defaults, an optional JSON file (-c/--config), REPOPIX_* environment
// variables and finally command-line flags, later sources winning.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the repopix CLI.
//
// DirRetries, ProbeRetries, BackoffBase and SettleDelay drive directory
// creation; DeleteDelay is the pause between deletes of a folder walk.
type Config struct {
	ServerURL string
	DBPath    string
	UploadDir string
	Compress  bool
	Verbose   bool

	DirRetries   int
	ProbeRetries int
	BackoffBase  time.Duration
	SettleDelay  time.Duration
	DeleteDelay  time.Duration

	GitHubSessionTTL time.Duration
	AuthTimeout      time.Duration
	RequestTimeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DBPath = "repopix.db"
	c.UploadDir = "imgs/uploads/"
	c.DirRetries = 3
	c.ProbeRetries = 3
	c.BackoffBase = time.Second
	c.SettleDelay = time.Second
	c.DeleteDelay = 200 * time.Millisecond
	c.GitHubSessionTTL = 30 * 24 * time.Hour
	c.AuthTimeout = 5 * time.Minute
	c.RequestTimeout = 60 * time.Second
}

// LoadConfig applies defaults, the JSON file named in os.Args and the
// environment. Flags are applied later by the command line parser, see
// BindFlags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseEnv(cfg)
	return cfg
}
