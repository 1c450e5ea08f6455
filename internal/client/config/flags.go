package config

import "github.com/spf13/pflag"

// BindFlags registers the client flags on fs with the current values of
// config as defaults, so parsing fs overrides only what the user passed.
//
//	-a, --server string       server base URL
//	-d, --db string           local credential database
//	-u, --upload-dir string   default upload directory
//	-z, --compress            compress images before upload
//	-v, --verbose             debug logging
//	-c, --config string       JSON config file (read before flags)
func BindFlags(fs *pflag.FlagSet, config *Config) {
	fs.StringVarP(&config.ServerURL, "server", "a", config.ServerURL, "server base URL")
	fs.StringVarP(&config.DBPath, "db", "d", config.DBPath, "path of the local credential database")
	fs.StringVarP(&config.UploadDir, "upload-dir", "u", config.UploadDir, "default upload directory in the repository")
	fs.BoolVarP(&config.Compress, "compress", "z", config.Compress, "compress images before upload")
	fs.BoolVarP(&config.Verbose, "verbose", "v", config.Verbose, "debug logging")
	fs.StringP("config", "c", "", "JSON config file")
}
