// Package httpapi exposes the portal's HTTP surface: the dashboard
// pages, the scan/upload/gallery endpoints, and the stored photo
// files. In gated deployments the JSON endpoints sit behind a session
// check; in open deployments the same routes answer without one.
package httpapi

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campusgate/internal/auth"
	"campusgate/internal/db"
	"campusgate/internal/metrics"
	"campusgate/internal/session"
	"campusgate/internal/uploads"
	"campusgate/internal/verify"
	"campusgate/internal/webui"
)

const sessionCookieName = "cg_session"

// Server holds the wired dependencies for all handlers. DB and
// Sessions are nil when AuthRequired is false; everything else is
// mandatory.
type Server struct {
	Logger   *slog.Logger
	Verifier *verify.Service
	Uploads  *uploads.Store
	Metrics  *metrics.Metrics

	AuthRequired bool
	DB           *db.DB
	Sessions     *session.Manager

	MaxUploadBytes int64

	loginLimiter *fixedWindowLimiter
}

// Handler builds the route table and middleware chain. Call Close when
// the server winds down.
func (s *Server) Handler() (http.Handler, error) {
	if s.Logger == nil || s.Verifier == nil || s.Uploads == nil || s.Metrics == nil {
		return nil, errors.New("logger, verifier, uploads and metrics are required")
	}
	if s.AuthRequired && (s.DB == nil || s.Sessions == nil) {
		return nil, errors.New("db and sessions are required when auth is enabled")
	}
	if s.MaxUploadBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}

	staticFS, err := fs.Sub(webui.StaticFS, "static")
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("GET /static/uploads/{name}", s.handleUploadedFile)
	mux.HandleFunc("GET /{$}", s.serveIndex)
	mux.Handle("GET /metrics", s.Metrics.Handler())

	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /scan", s.withSession(s.handleScan))
	mux.HandleFunc("POST /upload", s.withSession(s.handleUpload))
	mux.HandleFunc("GET /gallery", s.withSession(s.handleGallery))

	if s.AuthRequired {
		s.loginLimiter = newFixedWindowLimiter(10, time.Minute)
		mux.HandleFunc("GET /login", s.serveLoginPage)
		mux.HandleFunc("POST /login", s.handleLogin)
		mux.HandleFunc("GET /logout", s.handleLogout)
	}

	h := withSecurityHeaders(mux)
	h = s.withRecover(h)
	h = s.withRequestLog(h)
	return h, nil
}

// Close stops background goroutines started by Handler.
func (s *Server) Close() {
	if s.loginLimiter != nil {
		s.loginLimiter.Stop()
	}
}

// serveIndex hands out the dashboard, or the login page when the
// deployment is gated and the caller has no session yet.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	page := "static/index.html"
	if s.AuthRequired {
		if _, ok := s.identityFromRequest(r); !ok {
			page = "static/login.html"
		}
	}
	servePage(w, page)
}

func (s *Server) serveLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identityFromRequest(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	servePage(w, "static/login.html")
}

func servePage(w http.ResponseWriter, name string) {
	b, err := webui.StaticFS.ReadFile(name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "web ui missing"})
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

// handleLogin checks form credentials and issues a session cookie.
// Failures redirect back to the form with a generic error marker so
// the page never says which half was wrong.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if allowed, retry := s.loginLimiter.Allow(clientIP(r)); !allowed {
		s.Metrics.ObserveLogin(metrics.LoginRateLimited)
		w.Header().Set("Retry-After", retryAfterSeconds(retry))
		http.Error(w, "too many login attempts", http.StatusTooManyRequests)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	u, found, err := s.DB.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	// Verify against a filler digest on unknown usernames so both
	// rejection paths cost one argon2id evaluation.
	hash := auth.NoMatchHash
	if found {
		hash = u.PassHash
	}
	okPw, err := auth.VerifyPassword(password, hash)
	if err != nil || !okPw || !found {
		s.Metrics.ObserveLogin(metrics.LoginRejected)
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}

	tok, err := s.Sessions.Create(session.Identity{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}
	setSessionCookie(w, tok, s.Sessions.TTL())
	s.Metrics.ObserveLogin(metrics.LoginOK)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := readSessionCookie(r); ok {
		s.Sessions.Delete(tok)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleSession tells the dashboard who is logged in, or that the
// deployment runs open and has nobody to name.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.AuthRequired {
		writeJSON(w, http.StatusOK, map[string]any{"auth_required": false})
		return
	}
	id, ok := s.identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"auth_required": true,
		"user": map[string]string{
			"username":  id.Username,
			"full_name": id.FullName,
			"role":      id.Role,
		},
	})
}

// handleScan verifies a submitted plate. Blank input is a 400 carrying
// the warning verdict; everything else returns 200 with the verdict.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LicensePlate string `json:"license_plate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	res, err := s.Verifier.Verify(r.Context(), req.LicensePlate)
	if err != nil {
		s.failVerdict(w, r, err)
		return
	}
	s.Metrics.ObserveScan(res.Alert)
	if res.Alert == verify.AlertWarning {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	s.Logger.Info("vehicle scanned", scanAttrs(r.Context(), "plate", res.Plate, "alert", res.Alert)...)
	writeJSON(w, http.StatusOK, res)
}

// handleUpload verifies the claimed plate, stores the photo, and
// appends the audit record. The verdict never blocks the upload; an
// unauthorized vehicle is exactly what the evidence trail is for.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Image too large"})
		return
	}
	// Backstop for chunked bodies that lie about their size.
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Image too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No image uploaded"})
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No image uploaded"})
		return
	}
	defer file.Close()
	if hdr.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No selected file"})
		return
	}

	plate := r.FormValue("license_plate")
	res, err := s.Verifier.Verify(r.Context(), plate)
	if err != nil {
		s.failVerdict(w, r, err)
		return
	}

	name, err := s.Uploads.Save(r.Context(), hdr.Filename, file, plate, res.Authorized)
	if err != nil {
		if errors.Is(err, uploads.ErrBadFilename) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No selected file"})
			return
		}
		s.Logger.Error("upload failed", "filename", hdr.Filename, "error", err)
		writeJSON(w, dbErrStatus(err), map[string]string{"message": "upload failed"})
		return
	}

	s.Metrics.ObserveUpload(res.Authorized)
	s.Logger.Info("photo uploaded", scanAttrs(r.Context(), "filename", name, "plate", res.Plate, "authorized", res.Authorized)...)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Image uploaded",
		"filename": name,
		"result":   res,
	})
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	records, err := s.Uploads.List(r.Context())
	if err != nil {
		s.Logger.Error("gallery listing failed", "error", err)
		writeJSON(w, dbErrStatus(err), map[string]string{"error": "server error"})
		return
	}
	type item struct {
		Filename   string `json:"filename"`
		UploadTime string `json:"upload_time"`
		Plate      string `json:"plate"`
		Authorized bool   `json:"is_authorized"`
	}
	out := make([]item, 0, len(records))
	for _, rec := range records {
		out = append(out, item{
			Filename:   rec.Filename,
			UploadTime: rec.UploadTime,
			Plate:      rec.Plate,
			Authorized: rec.Authorized,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUploadedFile serves a stored photo back. The uploads jail
// refuses names that resolve outside it, which collapses to a 404 here.
func (s *Server) handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	f, info, err := s.Uploads.Open(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// failVerdict maps a verification error to a response. Transient
// sqlite lock errors get a 503 so the kiosk retries instead of
// surfacing a hard failure.
func (s *Server) failVerdict(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("verification failed", "path", r.URL.Path, "error", err)
	status := dbErrStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{"error": "server error"})
}

func setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func readSessionCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		w.Header().Set("content-security-policy", "default-src 'self'; object-src 'none'; base-uri 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
