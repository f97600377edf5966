package server

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"snapfeed/internal/config"
	"snapfeed/internal/middleware"
	"snapfeed/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	*Server
	db *gorm.DB
	mr *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                "0",
		Env:                 "test",
		JWTSecret:           testSecret,
		SessionTTL:          time.Hour,
		UploadDir:           t.TempDir(),
		UploadURLPrefix:     "/images/uploads",
		UploadMaxFileSizeMB: 5,
		UploadMaxFiles:      6,
		UploadNaming:        "random",
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.NewDB(t)
	store, mr := testutil.NewCache(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := NewServerWithDeps(cfg, log, db, store)
	require.NoError(t, err)
	return &testServer{Server: s, db: db, mr: mr}
}

func (ts *testServer) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp, err := ts.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ts *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (ts *testServer) postForm(t *testing.T, path string, form url.Values, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return ts.do(t, req, token)
}

func (ts *testServer) postMultipart(t *testing.T, path string, fields map[string]string, fileField string, files []testutil.File, token string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(fileField, f.Name)
		require.NoError(t, err)
		_, err = fw.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return ts.do(t, req, token)
}

func registration(email string) url.Values {
	return url.Values{
		"name":     {"Ada Lovelace"},
		"username": {"ada"},
		"email":    {email},
		"password": {"engine1843"},
		"age":      {"36"},
	}
}

// register creates an account through the HTTP surface and returns its session token.
func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	resp := ts.postForm(t, "/register", registration(email), "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	token := sessionToken(resp)
	require.NotEmpty(t, token)
	return token
}

func sessionToken(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c.Value
		}
	}
	return ""
}

func clearsSession(resp *http.Response) bool {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie && c.Value == "" {
			return true
		}
	}
	return false
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return string(b)
}

func pngs(t *testing.T, n int) []testutil.File {
	t.Helper()
	files := make([]testutil.File, n)
	for i := range files {
		files[i] = testutil.File{Name: "photo.png", Content: testutil.PNG(t)}
	}
	return files
}
