package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/repopix/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-g string   gRPC health bind address (e.g. ":50051")
//	-o string   repository owner
//	-n string   repository name
//	-b string   branch
//	-s string   session signing key
//	-t int      session validity, hours
//
// Other secrets are read from the environment only.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-o", "-n", "-b", "-s", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to listen on")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.RepoOwner, "o", config.RepoOwner, "repository owner")
	fs.StringVar(&config.RepoName, "n", config.RepoName, "repository name")
	fs.StringVar(&config.Branch, "b", config.Branch, "repository branch")
	fs.StringVar(&config.SessionKey, "s", config.SessionKey, "session signing key")

	sessionHours := fs.Int("t", int(config.SessionTTL.Hours()), "session validity (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.SessionTTL = time.Duration(*sessionHours) * time.Hour
		}
	})
}
