package config

import "github.com/dmitrijs2005/repopix/internal/flagx"

// lookupEnv is replaced in tests.
var lookupEnv = flagx.OSEnv

// parseEnv overlays config with the deployment environment. Variable names
// follow the hosting platform's conventions (GH_TOKEN, DELETE_PASSWORD, ...).
func parseEnv(config *Config) {
	env := lookupEnv()

	env.String("HTTP_ADDR", &config.HTTPAddr)
	env.String("GRPC_ADDR", &config.GRPCAddr)
	env.String("GITHUB_REPO_OWNER", &config.RepoOwner)
	env.String("GITHUB_REPO_NAME", &config.RepoName)
	env.String("GITHUB_BRANCH", &config.Branch)
	env.String("GH_TOKEN", &config.RepoToken)
	env.String("GITHUB_API_BASE", &config.GitHubAPI)
	env.String("GITHUB_WEB_BASE", &config.GitHubWeb)
	env.String("GITHUB_OAUTH_CLIENT_ID", &config.OAuthID)
	env.String("GITHUB_OAUTH_CLIENT_SECRET", &config.OAuthKey)
	env.String("GITHUB_OAUTH_REDIRECT_URI", &config.OAuthRedir)
	env.String("API_SECRET", &config.APISecret)
	env.String("DELETE_PASSWORD", &config.Password)
	env.String("DELETE_PASSWORD_HASH", &config.PasswordHash)
	env.String("SESSION_KEY", &config.SessionKey)
	env.List("ALLOWED_ORIGINS", &config.AllowedOrigins)
	env.String("TINYJPG_API_KEY", &config.TinifyAPIKey)
	env.String("TINIFY_API_BASE", &config.TinifyAPI)

	if err := env.Duration("SESSION_TTL", &config.SessionTTL); err != nil {
		panic(err)
	}
	if err := env.Duration("REQUEST_TIMEOUT", &config.RequestTimeout); err != nil {
		panic(err)
	}
}
