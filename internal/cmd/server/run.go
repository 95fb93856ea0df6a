// Package server implements the "campusgate server" CLI subcommand.
package server

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"campusgate/internal/config"
	"campusgate/internal/daemon"
	"campusgate/internal/logging"
	"campusgate/internal/version"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	fs.StringVar(&configPath, "config", "", "path to campusgate.yaml (defaults and CAMPUSGATE_* env apply without it)")
	fs.StringVar(&logLevel, "log-level", "", "override log level: debug|info|warning|error")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("campusgate server %s\n", version.Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if configPath != "" {
		// Relative paths in the file resolve against its own directory.
		base := filepath.Dir(configPath)
		cfg.DB.Path = resolvePath(base, cfg.DB.Path)
		cfg.Uploads.Dir = resolvePath(base, cfg.Uploads.Dir)
		cfg.Registry.File = resolvePath(base, cfg.Registry.File)
	}

	level := cfg.Log.Level
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	lg, err := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Log.Format,
		SetDefault: true,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return daemon.Run(ctx, daemon.Options{Config: cfg, Logger: lg})
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
