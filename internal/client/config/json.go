package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/repopix/internal/flagx"
	"github.com/dmitrijs2005/repopix/internal/timex"
)

// JsonConfig is the on-disk shape of the client config file. Only the
// fields present in the file override the current values.
type JsonConfig struct {
	ServerURL        *string         `json:"server_url"`
	DBPath           *string         `json:"db_path"`
	UploadDir        *string         `json:"upload_dir"`
	Compress         *bool           `json:"compress"`
	DirRetries       *int            `json:"dir_retries"`
	ProbeRetries     *int            `json:"probe_retries"`
	BackoffBase      *timex.Duration `json:"backoff_base"`
	SettleDelay      *timex.Duration `json:"settle_delay"`
	DeleteDelay      *timex.Duration `json:"delete_delay"`
	GitHubSessionTTL *timex.Duration `json:"github_session_ttl"`
	AuthTimeout      *timex.Duration `json:"auth_timeout"`
	RequestTimeout   *timex.Duration `json:"request_timeout"`
}

// parseJson overlays config with the file named by -c/--config in args.
// A missing flag means no file; unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	set(&config.ServerURL, c.ServerURL)
	set(&config.DBPath, c.DBPath)
	set(&config.UploadDir, c.UploadDir)
	set(&config.Compress, c.Compress)
	set(&config.DirRetries, c.DirRetries)
	set(&config.ProbeRetries, c.ProbeRetries)
	setDuration(&config.BackoffBase, c.BackoffBase)
	setDuration(&config.SettleDelay, c.SettleDelay)
	setDuration(&config.DeleteDelay, c.DeleteDelay)
	setDuration(&config.GitHubSessionTTL, c.GitHubSessionTTL)
	setDuration(&config.AuthTimeout, c.AuthTimeout)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
