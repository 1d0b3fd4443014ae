package config

import (
	"flag"
	"os"
	"time"

	"github.com/tfmagician/mi-users/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-s string   hash salt
//	-p string   active password policy tier (weak|normal|medium|strong|super)
//	-l int      token length (0 = native digest length)
//	-t int      token validity, hours
//	-x          debug mode (appends diagnostics to user-facing messages)
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. The token
// validity flag is accepted as an integer in hours and converted to a
// time.Duration.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-p", "-l", "-t", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.HashSalt, "s", config.HashSalt, "hash salt")
	fs.StringVar(&config.PasswordPolicy, "p", config.PasswordPolicy, "password policy tier")
	fs.IntVar(&config.TokenLength, "l", config.TokenLength, "token length (0 = unbounded)")
	fs.BoolVar(&config.Debug, "x", config.Debug, "debug mode")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Hours()), "token validity (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Hour
}
