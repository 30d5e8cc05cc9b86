package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/gymvault/gymvault/internal/model"
)

const (
	uploadURL          = "https://www.googleapis.com/upload/drive/v3/files?uploadType=multipart"
	driveFileScope     = "https://www.googleapis.com/auth/drive.file"
	defaultRedirectURI = "urn:ietf:wg:oauth:2.0:oob"
	mimeType           = "application/x-sqlite3"
)

// AuthError reports a rejected or unusable credential bundle.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("drive auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// UploadError reports a failed file transfer after authentication succeeded.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("drive upload: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// Client uploads backup files to Google Drive on behalf of one account.
type Client struct {
	httpClient *http.Client
	uploadURL  string
}

func oauthConfig(creds model.DriveCredentials) *oauth2.Config {
	redirect := creds.RedirectURI
	if redirect == "" {
		redirect = defaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{driveFileScope},
		RedirectURL:  redirect,
	}
}

// Authenticate derives an upload client from the credential bundle. The
// refresh token is exchanged immediately so credential problems surface here
// and not in the middle of an upload.
func Authenticate(ctx context.Context, creds model.DriveCredentials) (*Client, error) {
	if !creds.Complete() {
		return nil, &AuthError{Err: errors.New("incomplete credentials: client id, client secret and refresh token are required")}
	}

	cfg := oauthConfig(creds)
	ts := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	if _, err := ts.Token(); err != nil {
		return nil, &AuthError{Err: err}
	}

	return &Client{
		httpClient: oauth2.NewClient(ctx, ts),
		uploadURL:  uploadURL,
	}, nil
}

// Upload sends the local file to Drive under remoteName and returns the new
// file's ID. The request honors ctx for cancellation and deadlines.
func (c *Client) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	defer file.Close()

	metadata := map[string]any{
		"name":     remoteName,
		"mimeType": mimeType,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", &UploadError{Err: err}
	}

	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	metaPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if _, err := metaPart.Write(metadataJSON); err != nil {
		return "", &UploadError{Err: err}
	}

	filePart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {mimeType},
	})
	if err != nil {
		return "", &UploadError{Err: err}
	}
	if _, err := io.Copy(filePart, file); err != nil {
		return "", &UploadError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &UploadError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buffer)
	if err != nil {
		return "", &UploadError{Err: err}
	}
	// The Drive multipart endpoint expects multipart/related, not form-data.
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A refresh that fails mid-flight is a credential problem.
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", &AuthError{Err: err}
		}
		return "", &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UploadError{Err: fmt.Errorf("drive api status %d: %s", resp.StatusCode, string(body))}
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", &UploadError{Err: fmt.Errorf("decode drive response: %w", err)}
	}
	if uploaded.ID == "" {
		return "", &UploadError{Err: errors.New("drive response missing file id")}
	}
	return uploaded.ID, nil
}

// AuthURL returns the interactive consent URL for the given app credentials.
// The resulting authorization code can be traded for a refresh token with
// ExchangeCode.
func AuthURL(creds model.DriveCredentials) (string, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", &AuthError{Err: errors.New("client id and client secret are required")}
	}
	return oauthConfig(creds).AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// ExchangeCode trades an authorization code from the consent flow for a
// token. The token's refresh token belongs in the credential bundle.
func ExchangeCode(ctx context.Context, creds model.DriveCredentials, code string) (*oauth2.Token, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, &AuthError{Err: errors.New("client id and client secret are required")}
	}
	token, err := oauthConfig(creds).Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	return token, nil
}
