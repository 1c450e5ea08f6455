package config

import "github.com/dmitrijs2005/repopix/internal/flagx"

// lookupEnv is replaced in tests.
var lookupEnv = flagx.OSEnv

func parseEnv(config *Config) {
	env := lookupEnv()

	env.String("REPOPIX_SERVER", &config.ServerURL)
	env.String("REPOPIX_DB", &config.DBPath)
	env.String("REPOPIX_UPLOAD_DIR", &config.UploadDir)

	if err := env.Bool("REPOPIX_COMPRESS", &config.Compress); err != nil {
		panic(err)
	}
	if err := env.Duration("REPOPIX_AUTH_TIMEOUT", &config.AuthTimeout); err != nil {
		panic(err)
	}
}
