// Package setup implements the "campusgate setup" CLI subcommand.
package setup

import (
	"context"
	"flag"

	isetup "campusgate/internal/setup"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	var opt isetup.Options
	fs.StringVar(&opt.DBPath, "db", "./data/campusgate.db", "sqlite database path")
	fs.StringVar(&opt.UploadsDir, "uploads-dir", "./data/uploads", "evidence photo directory")
	fs.StringVar(&opt.AdminUsername, "admin-user", "admin", "initial administrator username")
	fs.StringVar(&opt.AdminPassword, "password", "", "set the administrator password non-interactively")
	fs.BoolVar(&opt.AdminPasswordEnv, "password-env", false, "read the administrator password from CAMPUSGATE_ADMIN_PASSWORD")
	fs.BoolVar(&opt.Demo, "demo", false, "seed the demonstration fleet and operator accounts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return isetup.Run(context.Background(), opt)
}
