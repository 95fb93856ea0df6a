// Package setup prepares a fresh gated deployment: it creates the
// database, the uploads directory, and the first administrator
// account, and can seed the demo fleet for evaluation installs.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"campusgate/internal/auth"
	"campusgate/internal/db"
	"campusgate/internal/validate"
)

type Options struct {
	DBPath     string
	UploadsDir string

	AdminUsername string
	// AdminPassword and AdminPasswordEnv are alternatives to the
	// interactive prompt; set at most one.
	AdminPassword    string
	AdminPasswordEnv bool

	// Demo loads the demonstration vehicles and operator accounts.
	Demo bool
}

func Run(ctx context.Context, opt Options) error {
	if opt.DBPath == "" {
		return errors.New("db path is required")
	}
	if opt.UploadsDir == "" {
		return errors.New("uploads dir is required")
	}
	username := strings.TrimSpace(opt.AdminUsername)
	if err := validate.Username(username); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opt.DBPath), 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(opt.UploadsDir, 0o750); err != nil {
		return err
	}

	d, err := db.Open(ctx, opt.DBPath)
	if err != nil {
		return err
	}
	defer d.Close()
	_ = os.Chmod(opt.DBPath, 0o600)

	if _, exists, err := d.GetUserByUsername(ctx, username); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("user %s already exists; use reset-password instead", username)
	}

	pass, err := resolvePassword(
		fmt.Sprintf("Set password for %s", username),
		opt.AdminPassword,
		opt.AdminPasswordEnv,
		"CAMPUSGATE_ADMIN_PASSWORD",
	)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pass, auth.DefaultArgon2Params())
	if err != nil {
		return err
	}
	if _, err := d.CreateUser(ctx, username, hash, "Administrator", "admin"); err != nil {
		return err
	}

	if opt.Demo {
		if err := d.Seed(ctx); err != nil {
			return err
		}
	}
	return nil
}

// resolvePassword picks the password source: explicit flag value, the
// named environment variable, or an interactive prompt.
func resolvePassword(label, flagValue string, fromEnv bool, envName string) (string, error) {
	if flagValue != "" && fromEnv {
		return "", errors.New("choose one of -password or -password-env")
	}
	if fromEnv {
		v := strings.TrimSpace(os.Getenv(envName))
		if v == "" {
			return "", fmt.Errorf("%s is empty", envName)
		}
		return v, nil
	}
	if flagValue != "" {
		v := strings.TrimSpace(flagValue)
		if v == "" {
			return "", errors.New("password is empty")
		}
		return v, nil
	}
	return promptPassword(label)
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		for {
			fmt.Fprintf(os.Stderr, "%s: ", label)
			p1b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			fmt.Fprint(os.Stderr, "Confirm password: ")
			p2b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			p1 := strings.TrimSpace(string(p1b))
			p2 := strings.TrimSpace(string(p2b))
			if p1 == "" {
				fmt.Fprintln(os.Stderr, "password cannot be empty")
				continue
			}
			if p1 != p2 {
				fmt.Fprintln(os.Stderr, "passwords do not match")
				continue
			}
			return p1, nil
		}
	}

	// Non-interactive fallback (e.g. piped input). Echo suppression isn't possible.
	r := bufio.NewReader(os.Stdin)
	for {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		p1, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		fmt.Fprint(os.Stderr, "Confirm password: ")
		p2, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		p1 = strings.TrimSpace(p1)
		p2 = strings.TrimSpace(p2)
		if p1 == "" {
			fmt.Fprintln(os.Stderr, "password cannot be empty")
			continue
		}
		if p1 != p2 {
			fmt.Fprintln(os.Stderr, "passwords do not match")
			continue
		}
		return p1, nil
	}
}
