// Package resetpassword implements the "campusgate reset-password"
// CLI subcommand. It rewrites one account's credential directly in the
// SQLite database, so it works while the server is stopped.
package resetpassword

import (
	"context"
	"flag"

	isetup "campusgate/internal/setup"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	var opt isetup.ResetPasswordOptions
	fs.StringVar(&opt.DBPath, "db", "./data/campusgate.db", "sqlite database path")
	fs.StringVar(&opt.Username, "username", "", "account to reset")
	fs.StringVar(&opt.Password, "password", "", "set the password non-interactively")
	fs.BoolVar(&opt.PasswordEnv, "password-env", false, "read the password from CAMPUSGATE_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return isetup.ResetPassword(context.Background(), opt)
}
