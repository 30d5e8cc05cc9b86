package drive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymvault/gymvault/internal/model"
)

func writeBackupFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gym-backup-test.db")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testClient(server *httptest.Server) *Client {
	return &Client{httpClient: server.Client(), uploadURL: server.URL}
}

func TestUpload_Success(t *testing.T) {
	var gotName, gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := reader.NextPart()
		require.NoError(t, err)
		var metadata struct {
			Name     string `json:"name"`
			MimeType string `json:"mimeType"`
		}
		require.NoError(t, json.NewDecoder(metaPart).Decode(&metadata))
		gotName = metadata.Name
		assert.Equal(t, "application/x-sqlite3", metadata.MimeType)

		filePart, err := reader.NextPart()
		require.NoError(t, err)
		content, err := io.ReadAll(filePart)
		require.NoError(t, err)
		gotContent = string(content)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"drive-file-1"}`))
	}))
	defer server.Close()

	path := writeBackupFile(t, "sqlite bytes")
	fileID, err := testClient(server).Upload(context.Background(), path, "gym-backup-test.db")

	require.NoError(t, err)
	assert.Equal(t, "drive-file-1", fileID)
	assert.Equal(t, "gym-backup-test.db", gotName)
	assert.Equal(t, "sqlite bytes", gotContent)
}

func TestUpload_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient permissions"}}`))
	}))
	defer server.Close()

	path := writeBackupFile(t, "sqlite bytes")
	_, err := testClient(server).Upload(context.Background(), path, "gym-backup-test.db")

	require.Error(t, err)
	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Contains(t, uploadErr.Error(), "status 403")
	assert.Contains(t, uploadErr.Error(), "insufficient permissions")
}

func TestUpload_MissingResponseID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	path := writeBackupFile(t, "sqlite bytes")
	_, err := testClient(server).Upload(context.Background(), path, "gym-backup-test.db")

	require.Error(t, err)
	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Contains(t, uploadErr.Error(), "missing file id")
}

func TestUpload_MissingLocalFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be reached when the local file is missing")
	}))
	defer server.Close()

	_, err := testClient(server).Upload(context.Background(), filepath.Join(t.TempDir(), "missing.db"), "x.db")

	require.Error(t, err)
	var uploadErr *UploadError
	assert.True(t, errors.As(err, &uploadErr))
}

func TestAuthenticate_IncompleteCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds model.DriveCredentials
	}{
		{name: "empty bundle", creds: model.DriveCredentials{}},
		{name: "missing refresh token", creds: model.DriveCredentials{ClientID: "id", ClientSecret: "secret"}},
		{name: "missing client secret", creds: model.DriveCredentials{ClientID: "id", RefreshToken: "tok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Authenticate(context.Background(), tt.creds)
			require.Error(t, err)
			var authErr *AuthError
			assert.True(t, errors.As(err, &authErr))
		})
	}
}

func TestAuthURL(t *testing.T) {
	creds := model.DriveCredentials{ClientID: "client-1", ClientSecret: "secret-1"}

	url, err := AuthURL(creds)
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=client-1")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "drive.file")

	_, err = AuthURL(model.DriveCredentials{})
	require.Error(t, err)
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
}

func TestAuthURL_CustomRedirect(t *testing.T) {
	creds := model.DriveCredentials{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:9999/callback",
	}

	url, err := AuthURL(creds)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost%3A9999")
}

func TestExchangeCode_MissingCredentials(t *testing.T) {
	_, err := ExchangeCode(context.Background(), model.DriveCredentials{}, "some-code")
	require.Error(t, err)
	var authErr *AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.True(t, strings.Contains(err.Error(), "client id"))
}
