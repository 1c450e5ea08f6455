package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/repopix/internal/flagx"
	"github.com/dmitrijs2005/repopix/internal/timex"
)

// JsonConfig is the on-disk shape of the server config file. Only the
// fields present in the file override the current values.
type JsonConfig struct {
	HTTPAddr       *string         `json:"http_addr"`
	GRPCAddr       *string         `json:"grpc_addr"`
	RepoOwner      *string         `json:"repo_owner"`
	RepoName       *string         `json:"repo_name"`
	Branch         *string         `json:"branch"`
	RepoToken      *string         `json:"repo_token"`
	GitHubAPI      *string         `json:"github_api"`
	OAuthID        *string         `json:"oauth_client_id"`
	OAuthKey       *string         `json:"oauth_client_secret"`
	OAuthRedir     *string         `json:"oauth_redirect_uri"`
	APISecret      *string         `json:"api_secret"`
	Password       *string         `json:"password"`
	PasswordHash   *string         `json:"password_hash"`
	SessionKey     *string         `json:"session_key"`
	SessionTTL     *timex.Duration `json:"session_ttl"`
	AllowedOrigins []string        `json:"allowed_origins"`
	TinifyAPIKey   *string         `json:"tinify_api_key"`
	TinifyAPI      *string         `json:"tinify_api"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
}

// parseJson overlays config with the file named by -c/-config in args.
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

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.RepoOwner, c.RepoOwner)
	setString(&config.RepoName, c.RepoName)
	setString(&config.Branch, c.Branch)
	setString(&config.RepoToken, c.RepoToken)
	setString(&config.GitHubAPI, c.GitHubAPI)
	setString(&config.OAuthID, c.OAuthID)
	setString(&config.OAuthKey, c.OAuthKey)
	setString(&config.OAuthRedir, c.OAuthRedir)
	setString(&config.APISecret, c.APISecret)
	setString(&config.Password, c.Password)
	setString(&config.PasswordHash, c.PasswordHash)
	setString(&config.SessionKey, c.SessionKey)
	setString(&config.TinifyAPIKey, c.TinifyAPIKey)
	setString(&config.TinifyAPI, c.TinifyAPI)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
