// Package daemon wires configuration into a running portal: database,
// plate registry, session manager, photo store, and the HTTP server,
// with a graceful drain when the context ends.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"campusgate/internal/config"
	"campusgate/internal/db"
	"campusgate/internal/httpapi"
	"campusgate/internal/jailfs"
	"campusgate/internal/metrics"
	"campusgate/internal/registry"
	"campusgate/internal/session"
	"campusgate/internal/uploads"
	"campusgate/internal/verify"
)

type Options struct {
	Config config.Config
	Logger *slog.Logger
}

// Run starts the portal and blocks until it fails or ctx is canceled.
func Run(ctx context.Context, opt Options) error {
	cfg := opt.Config
	log := opt.Logger
	if log == nil {
		return errors.New("logger is required")
	}

	// The audit log lives in sqlite in both modes; only the plate
	// registry switches backends.
	d, err := db.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	var store registry.Store
	switch cfg.Registry.Source {
	case config.RegistryFile:
		fileStore, err := registry.LoadFile(cfg.Registry.File)
		if err != nil {
			return err
		}
		log.Info("authorized plate list loaded", "path", cfg.Registry.File, "plates", fileStore.Len())
		store = fileStore
	default:
		store = registry.NewDBStore(d)
	}

	var sessions *session.Manager
	if cfg.Auth.Required {
		users, err := d.ListUsers(ctx)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return errors.New("no operator accounts; run setup first")
		}
		sessions = session.NewManager(time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute)
		defer sessions.Stop()
	}

	jail := jailfs.New(cfg.Uploads.Dir)
	if err := jail.EnsureRoot(); err != nil {
		return err
	}

	api := &httpapi.Server{
		Logger:         log,
		Verifier:       verify.New(store, cfg.Auth.Required),
		Uploads:        uploads.NewStore(jail, d),
		Metrics:        metrics.New(),
		AuthRequired:   cfg.Auth.Required,
		DB:             d,
		Sessions:       sessions,
		MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
	}
	handler, err := api.Handler()
	if err != nil {
		return err
	}
	defer api.Close()

	addr := cfg.HTTP.Bind + ":" + strconv.Itoa(cfg.HTTP.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	mode := "open"
	if cfg.Auth.Required {
		mode = "gated"
	}
	log.Info("portal listening",
		"addr", addr,
		"mode", mode,
		"registry", cfg.Registry.Source,
		"uploads_dir", cfg.Uploads.Dir,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
