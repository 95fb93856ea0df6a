package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"campusgate/internal/auth"
	"campusgate/internal/db"
	"campusgate/internal/jailfs"
	"campusgate/internal/metrics"
	"campusgate/internal/registry"
	"campusgate/internal/session"
	"campusgate/internal/uploads"
	"campusgate/internal/verify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// newGatedServer builds a full gated deployment over a temp database:
// seeded vehicle registry, one operator account, OS-backed photo jail.
func newGatedServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	d, err := db.Open(ctx, filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	hash, err := auth.HashPassword("gate-pass", auth.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := d.CreateUser(ctx, "gatekeeper", hash, "Gate Keeper", "student"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	jail := jailfs.New(t.TempDir())
	if err := jail.EnsureRoot(); err != nil {
		t.Fatalf("jail: %v", err)
	}
	sessions := session.NewManager(time.Hour)
	t.Cleanup(sessions.Stop)

	srv := &Server{
		Logger:         testLogger(),
		Verifier:       verify.New(registry.NewDBStore(d), true),
		Uploads:        uploads.NewStore(jail, d),
		Metrics:        metrics.New(),
		AuthRequired:   true,
		DB:             d,
		Sessions:       sessions,
		MaxUploadBytes: 5 << 20,
	}
	h, err := srv.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

// noRedirectClient keeps cookies but stops at the first redirect so
// tests can assert on Location headers.
func noRedirectClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func login(t *testing.T, c *http.Client, baseURL, username, password string) {
	t.Helper()
	resp, err := c.PostForm(baseURL+"/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("login redirect=%q", loc)
	}
}

func postScan(t *testing.T, c *http.Client, baseURL, plate string) (*http.Response, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"license_plate": plate})
	resp, err := c.Post(baseURL+"/scan", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode scan response: %v", err)
	}
	return resp, out
}

func TestGatedEndpointsRequireSession(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)

	for _, probe := range []struct {
		method, path string
	}{
		{http.MethodPost, "/scan"},
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/gallery"},
		{http.MethodGet, "/session"},
	} {
		req, _ := http.NewRequest(probe.method, ts.URL+probe.path, strings.NewReader("{}"))
		resp, err := c.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", probe.method, probe.path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: status=%d, want 401", probe.method, probe.path, resp.StatusCode)
		}
		var out map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp.Body.Close()
		if out["error"] != "not authenticated" {
			t.Fatalf("%s %s: body=%v", probe.method, probe.path, out)
		}
	}
}

func TestIndexShowsLoginWhenUnauthenticated(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)

	resp, err := c.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get /: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(b), "Sign in") {
		t.Fatalf("expected login page, got %q", string(b)[:min(len(b), 120)])
	}

	login(t, c, ts.URL, "gatekeeper", "gate-pass")
	resp, err = c.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get / after login: %v", err)
	}
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "scan-form") {
		t.Fatalf("expected dashboard after login")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)

	for _, attempt := range []struct {
		username, password string
	}{
		{"gatekeeper", "wrong"},
		{"nobody", "gate-pass"},
		{"", ""},
	} {
		resp, err := c.PostForm(ts.URL+"/login", url.Values{
			"username": {attempt.username},
			"password": {attempt.password},
		})
		if err != nil {
			t.Fatalf("post login: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusSeeOther {
			t.Fatalf("user=%q status=%d, want 303", attempt.username, resp.StatusCode)
		}
		if loc := resp.Header.Get("Location"); loc != "/login?error=1" {
			t.Fatalf("user=%q redirect=%q", attempt.username, loc)
		}
	}

	// Still locked out.
	resp, err := c.Get(ts.URL + "/gallery")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("gallery status=%d after failed logins", resp.StatusCode)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	// Capture the raw token so we can replay it after logout.
	u, _ := url.Parse(ts.URL)
	var token string
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == sessionCookieName {
			token = ck.Value
		}
	}
	if token == "" {
		t.Fatalf("no session cookie after login")
	}

	resp, err := c.Get(ts.URL + "/logout")
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status=%d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("logout redirect=%q", loc)
	}

	// The old token must be dead server-side, not just cleared client-side.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/session", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("session probe: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed token status=%d, want 401", resp.StatusCode)
	}
}

func TestScanVerdictsOverHTTP(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	resp, out := postScan(t, c, ts.URL, "mh12 ab1234")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authorized scan status=%d", resp.StatusCode)
	}
	if out["is_authorized"] != true || out["plate"] != "MH12AB1234" {
		t.Fatalf("authorized scan body=%v", out)
	}
	if out["message"] != "SUCCESS! Vehicle MH12AB1234 is authorized." || out["alert_type"] != "success" {
		t.Fatalf("authorized scan body=%v", out)
	}
	details, ok := out["details"].(map[string]any)
	if !ok || details["owner"] != "Aarav Mehta" {
		t.Fatalf("authorized scan details=%v", out["details"])
	}

	resp, out = postScan(t, c, ts.URL, "KA03MN7788")
	if resp.StatusCode != http.StatusOK || out["is_authorized"] != false {
		t.Fatalf("blocked scan status=%d body=%v", resp.StatusCode, out)
	}
	if out["alert_type"] != "error" {
		t.Fatalf("blocked scan alert=%v", out["alert_type"])
	}
	details, _ = out["details"].(map[string]any)
	if details["owner"] != "Rohan Iyer" {
		t.Fatalf("blocked scan owner=%v", details["owner"])
	}

	resp, out = postScan(t, c, ts.URL, "ZZ99ZZ9999")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown scan status=%d", resp.StatusCode)
	}
	if out["message"] != "ALERT! Vehicle ZZ99ZZ9999 is UNAUTHORIZED/UNKNOWN." {
		t.Fatalf("unknown scan message=%v", out["message"])
	}
	details, _ = out["details"].(map[string]any)
	if details["owner"] != "UNKNOWN" {
		t.Fatalf("unknown scan owner=%v", details["owner"])
	}
}

func TestScanBlankPlate(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	resp, out := postScan(t, c, ts.URL, "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank scan status=%d, want 400", resp.StatusCode)
	}
	if out["message"] != "Error: No license plate detected." || out["alert_type"] != "warning" {
		t.Fatalf("blank scan body=%v", out)
	}
	if _, present := out["plate"]; present {
		t.Fatalf("blank scan should omit plate: %v", out)
	}
	if _, present := out["details"]; present {
		t.Fatalf("blank scan should omit details: %v", out)
	}
}

func multipartUpload(t *testing.T, c *http.Client, baseURL, filename, plate string, content []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.WriteField("license_plate", plate); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp, err := c.Post(baseURL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp, out
}

func TestUploadGalleryAndServing(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	photo := []byte("jpeg-bytes-go-here")
	resp, out := multipartUpload(t, c, ts.URL, "gate cam.jpg", "GJ01XY9900", photo)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status=%d body=%v", resp.StatusCode, out)
	}
	if out["message"] != "Image uploaded" || out["filename"] != "gate_cam.jpg" {
		t.Fatalf("upload body=%v", out)
	}
	result, ok := out["result"].(map[string]any)
	if !ok || result["is_authorized"] != true {
		t.Fatalf("upload result=%v", out["result"])
	}

	// A second, unauthorized upload must also be recorded.
	resp, out = multipartUpload(t, c, ts.URL, "intruder.png", "ZZ99ZZ9999", []byte("png"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second upload status=%d body=%v", resp.StatusCode, out)
	}

	galResp, err := c.Get(ts.URL + "/gallery")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	var records []struct {
		Filename   string `json:"filename"`
		UploadTime string `json:"upload_time"`
		Plate      string `json:"plate"`
		Authorized bool   `json:"is_authorized"`
	}
	if err := json.NewDecoder(galResp.Body).Decode(&records); err != nil {
		t.Fatalf("decode gallery: %v", err)
	}
	galResp.Body.Close()
	if len(records) != 2 {
		t.Fatalf("gallery records=%d, want 2", len(records))
	}
	if records[0].Filename != "intruder.png" || records[1].Filename != "gate_cam.jpg" {
		t.Fatalf("gallery order: %q then %q", records[0].Filename, records[1].Filename)
	}
	if records[0].Authorized || !records[1].Authorized {
		t.Fatalf("gallery verdicts: %+v", records)
	}
	if records[1].Plate != "GJ01XY9900" {
		t.Fatalf("gallery plate=%q", records[1].Plate)
	}

	// Stored photos are served back ungated.
	fileResp, err := http.Get(ts.URL + "/static/uploads/gate_cam.jpg")
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	got, _ := io.ReadAll(fileResp.Body)
	fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK || !bytes.Equal(got, photo) {
		t.Fatalf("photo serve status=%d len=%d", fileResp.StatusCode, len(got))
	}

	fileResp, err = http.Get(ts.URL + "/static/uploads/ghost.jpg")
	if err != nil {
		t.Fatalf("get missing photo: %v", err)
	}
	fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing photo status=%d", fileResp.StatusCode)
	}
}

func TestUploadWithoutFile(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("license_plate", "MH12AB1234"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	_ = mw.Close()

	resp, err := c.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || out["message"] != "No image uploaded" {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}

	// Nothing may have been recorded.
	galResp, err := c.Get(ts.URL + "/gallery")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	var records []json.RawMessage
	_ = json.NewDecoder(galResp.Body).Decode(&records)
	galResp.Body.Close()
	if len(records) != 0 {
		t.Fatalf("records=%d after rejected upload", len(records))
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)
	login(t, c, ts.URL, "gatekeeper", "gate-pass")

	big := bytes.Repeat([]byte("x"), 6<<20)
	resp, out := multipartUpload(t, c, ts.URL, "huge.jpg", "MH12AB1234", big)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d body=%v", resp.StatusCode, out)
	}
}

func TestLoginRateLimited(t *testing.T) {
	ts := newGatedServer(t)
	c := noRedirectClient(t)

	var last *http.Response
	for i := 0; i < 11; i++ {
		resp, err := c.PostForm(ts.URL+"/login", url.Values{
			"username": {"gatekeeper"},
			"password": {"wrong"},
		})
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		last = resp
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("11th attempt status=%d, want 429", last.StatusCode)
	}
	if last.Header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

// newPublicServer wires the open deployment: flat-file registry, no
// session manager, audit log still in sqlite.
func newPublicServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	d, err := db.Open(ctx, filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	listPath := filepath.Join(t.TempDir(), "authorized.txt")
	if err := os.WriteFile(listPath, []byte("MH12AB1234\ndl8c af4921\n"), 0o600); err != nil {
		t.Fatalf("write list: %v", err)
	}
	store, err := registry.LoadFile(listPath)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}

	jail := jailfs.New(t.TempDir())
	if err := jail.EnsureRoot(); err != nil {
		t.Fatalf("jail: %v", err)
	}

	srv := &Server{
		Logger:         testLogger(),
		Verifier:       verify.New(store, false),
		Uploads:        uploads.NewStore(jail, d),
		Metrics:        metrics.New(),
		AuthRequired:   false,
		MaxUploadBytes: 5 << 20,
	}
	h, err := srv.Handler()
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func TestPublicModeNoAuth(t *testing.T) {
	ts := newPublicServer(t)
	c := noRedirectClient(t)

	// No login surface at all.
	resp, err := c.Get(ts.URL + "/login")
	if err != nil {
		t.Fatalf("get /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("/login status=%d, want 404", resp.StatusCode)
	}

	resp, err = c.Get(ts.URL + "/session")
	if err != nil {
		t.Fatalf("get /session: %v", err)
	}
	var sess map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&sess)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || sess["auth_required"] != false {
		t.Fatalf("session body=%v", sess)
	}

	// Scans answer without any session.
	scanResp, out := postScan(t, c, ts.URL, "dl8caf4921")
	if scanResp.StatusCode != http.StatusOK || out["is_authorized"] != true {
		t.Fatalf("public scan body=%v", out)
	}
	details, _ := out["details"].(map[string]any)
	if details["owner"] != "N/A" {
		t.Fatalf("public scan owner=%v", details["owner"])
	}

	// Unknown plates keep the plain unauthorized wording.
	_, out = postScan(t, c, ts.URL, "ZZ99ZZ9999")
	if out["message"] != "ALERT! Vehicle ZZ99ZZ9999 is UNAUTHORIZED." {
		t.Fatalf("public unknown message=%v", out["message"])
	}

	// Uploads still hit the audit log.
	upResp, upOut := multipartUpload(t, c, ts.URL, "open.jpg", "MH12AB1234", []byte("img"))
	if upResp.StatusCode != http.StatusOK || upOut["filename"] != "open.jpg" {
		t.Fatalf("public upload body=%v", upOut)
	}
	galResp, err := c.Get(ts.URL + "/gallery")
	if err != nil {
		t.Fatalf("gallery: %v", err)
	}
	var records []json.RawMessage
	_ = json.NewDecoder(galResp.Body).Decode(&records)
	galResp.Body.Close()
	if len(records) != 1 {
		t.Fatalf("public gallery records=%d", len(records))
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newPublicServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get /: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("x-content-type-options"); got != "nosniff" {
		t.Fatalf("x-content-type-options=%q", got)
	}
	if got := resp.Header.Get("x-frame-options"); got != "DENY" {
		t.Fatalf("x-frame-options=%q", got)
	}
}
