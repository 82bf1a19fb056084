package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/infra/db/dbtest"
	"storefront/internal/server"

	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-pass-1"
)

type TestClient struct {
	BaseURL   string
	HTTP      *http.Client
	UploadDir string
}

// SQLiteの本物のDBで全ルートを立ち上げる
func NewTestClient(t *testing.T) *TestClient {
	t.Helper()

	uploadDir := t.TempDir()
	cfg := config.Config{
		GoEnv:           "test",
		JWTSecret:       "e2e-secret",
		AccessTokenTTL:  time.Hour,
		BcryptCost:      4,
		AdminEmail:      adminEmail,
		AdminPassword:   adminPassword,
		UploadDir:       uploadDir,
		PublicBaseURL:   "http://localhost:8080",
		FEURL:           "http://localhost:3000",
		QRBankName:      "Test Bank",
		QRAccountNumber: "123-456",
		QRAccountName:   "Storefront",
		QRTTL:           15 * time.Minute,
	}

	e, err := server.Build(context.Background(), cfg, dbtest.New(t))
	require.NoError(t, err)

	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)

	return &TestClient{
		BaseURL:   ts.URL,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		UploadDir: uploadDir,
	}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type userDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	apiResponse
	Token     string  `json:"token"`
	ExpiresIn int64   `json:"expires_in"`
	User      userDTO `json:"user"`
}

func (c *TestClient) doJSON(
	t *testing.T,
	method string,
	path string,
	bearer string,
	body any,
	headers ...string,
) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.BaseURL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.HTTP.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

// fieldsはフォーム値、filesはimages欄に付けるファイル名→中身
func (c *TestClient) doMultipart(
	t *testing.T,
	method string,
	path string,
	bearer string,
	fields map[string]string,
	files map[string][]byte,
) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequestWithContext(context.Background(), method, c.BaseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTP.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

// UPLOAD_DIR/<folder> にあるファイル数。フォルダが無ければ0
func (c *TestClient) uploadedFiles(t *testing.T, folder string) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(c.UploadDir, folder))
	if errors.Is(err, fs.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func requireStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, want, string(body))
	}
}

func mustDecode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func toStr(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (c *TestClient) login(t *testing.T, path, email, password string) string {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, path, "", map[string]string{
		"email":    email,
		"password": password,
	})
	requireStatus(t, resp, http.StatusOK, body)

	out := mustDecode[loginResponse](t, body)
	require.NotEmpty(t, out.Token, string(body))
	return out.Token
}

func (c *TestClient) adminLogin(t *testing.T) string {
	t.Helper()
	return c.login(t, "/admin/login", adminEmail, adminPassword)
}

// 登録してログインしたトークンを返す
func (c *TestClient) registerUser(t *testing.T, username, email, phone string) string {
	t.Helper()

	resp, body := c.doJSON(t, http.MethodPost, "/user/register", "", map[string]string{
		"username":         username,
		"email":            email,
		"phone":            phone,
		"password":         "s3cret-pass",
		"confirm_password": "s3cret-pass",
	})
	requireStatus(t, resp, http.StatusCreated, body)

	return c.login(t, "/user/login", email, "s3cret-pass")
}
