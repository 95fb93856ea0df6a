package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campusgate/internal/auth"
	"campusgate/internal/db"
)

type ResetPasswordOptions struct {
	DBPath   string
	Username string

	Password    string
	PasswordEnv bool
}

// ResetPassword replaces the stored hash for one account. It works
// directly against the database, so a locked-out administrator can
// recover without the server running.
func ResetPassword(ctx context.Context, opt ResetPasswordOptions) error {
	if opt.DBPath == "" {
		return errors.New("db path is required")
	}
	username := strings.TrimSpace(opt.Username)
	if username == "" {
		return errors.New("username is required")
	}

	d, err := db.Open(ctx, opt.DBPath)
	if err != nil {
		return err
	}
	defer d.Close()

	u, found, err := d.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no such user: %s", username)
	}

	pass, err := resolvePassword(
		fmt.Sprintf("New password for %s", username),
		opt.Password,
		opt.PasswordEnv,
		"CAMPUSGATE_PASSWORD",
	)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pass, auth.DefaultArgon2Params())
	if err != nil {
		return err
	}
	return d.SetUserPasswordHash(ctx, u.ID, hash)
}
