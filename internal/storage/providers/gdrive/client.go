package gdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/storage"
	"github.com/mrlokans/lumina/internal/syncdoc"
)

const (
	driveAPIURL    = "https://www.googleapis.com/drive/v3"
	driveUploadURL = "https://www.googleapis.com/upload/drive/v3"

	epubMimeType  = "application/epub+zip"
	appDataFolder = "appDataFolder"
	listPageSize  = 1000

	multipartBoundary = "lumina-sync-boundary"
	maxErrorBody      = 4096
)

// Client implements storage.RemoteStore for Google Drive v3.
type Client struct {
	tokenSource storage.TokenSource
	httpClient  *http.Client
	apiURL      string
	uploadURL   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURLs points the client at another Drive endpoint.
func WithBaseURLs(apiURL, uploadURL string) Option {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(apiURL, "/")
		c.uploadURL = strings.TrimRight(uploadURL, "/")
	}
}

// NewClient creates a new Google Drive storage client
func NewClient(tokenSource storage.TokenSource, opts ...Option) *Client {
	c := &Client{
		tokenSource: tokenSource,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiURL:    driveAPIURL,
		uploadURL: driveUploadURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
	Size         string `json:"size"`
}

type fileListResponse struct {
	Files         []driveFile `json:"files"`
	NextPageToken string      `json:"nextPageToken"`
}

func (c *Client) ListBooks(ctx context.Context, folderID string) ([]entities.RemoteFile, error) {
	const op = "drive.list"

	query := fmt.Sprintf("mimeType='%s' and trashed=false", epubMimeType)
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}

	var files []entities.RemoteFile
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("q", query)
		params.Set("fields", "nextPageToken,files(id,name,mimeType,modifiedTime,size)")
		params.Set("includeItemsFromAllDrives", "true")
		params.Set("supportsAllDrives", "true")
		params.Set("pageSize", strconv.Itoa(listPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page fileListResponse
		if err := c.getJSON(ctx, op, c.apiURL+"/files?"+params.Encode(), &page); err != nil {
			return nil, err
		}
		for _, f := range page.Files {
			files = append(files, convertFile(f))
		}

		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func convertFile(f driveFile) entities.RemoteFile {
	out := entities.RemoteFile{
		ID:       f.ID,
		Name:     f.Name,
		MimeType: f.MimeType,
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.ModifiedTime = t
	}
	if size, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
		out.Size = size
	}
	return out
}

func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	const op = "drive.download"

	u := fmt.Sprintf("%s/files/%s?alt=media&supportsAllDrives=true", c.apiURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) ReadAppDocument(ctx context.Context) (*storage.AppDocument, error) {
	const op = "drive.read_app_document"

	params := url.Values{}
	params.Set("q", fmt.Sprintf("name='%s' and trashed=false", syncdoc.FileName))
	params.Set("spaces", appDataFolder)
	params.Set("fields", "files(id,name,modifiedTime)")
	// duplicates can appear when two devices create the document at once;
	// the most recently written one wins
	params.Set("orderBy", "modifiedTime desc")

	var listing fileListResponse
	if err := c.getJSON(ctx, op, c.apiURL+"/files?"+params.Encode(), &listing); err != nil {
		return nil, err
	}
	if len(listing.Files) == 0 {
		return nil, nil
	}

	docID := listing.Files[0].ID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/files/%s?alt=media", c.apiURL, url.PathEscape(docID)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.do(ctx, op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, op, err)
	}
	return &storage.AppDocument{ID: docID, Content: content}, nil
}

func (c *Client) WriteAppDocument(ctx context.Context, content []byte, documentID string) (string, error) {
	if documentID != "" {
		return documentID, c.replaceAppDocument(ctx, content, documentID)
	}
	return c.createAppDocument(ctx, content)
}

func (c *Client) replaceAppDocument(ctx context.Context, content []byte, documentID string) error {
	const op = "drive.update_app_document"

	u := fmt.Sprintf("%s/files/%s?uploadType=media", c.uploadURL, url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) createAppDocument(ctx context.Context, content []byte) (string, error) {
	const op = "drive.create_app_document"

	metadata, err := json.Marshal(map[string]any{
		"name":    syncdoc.FileName,
		"parents": []string{appDataFolder},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.SetBoundary(multipartBoundary); err != nil {
		return "", fmt.Errorf("failed to set boundary: %w", err)
	}
	parts := []struct {
		contentType string
		data        []byte
	}{
		{"application/json; charset=UTF-8", metadata},
		{"application/json", content},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return "", fmt.Errorf("failed to create multipart section: %w", err)
		}
		if _, err := w.Write(p.data); err != nil {
			return "", fmt.Errorf("failed to write multipart section: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/files?uploadType=multipart", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+multipartBoundary)

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", failure.Newf(failure.KindRemoteStore, op, "failed to decode create response: %v", err)
	}
	if created.ID == "" {
		return "", failure.Newf(failure.KindRemoteStore, op, "create response carried no file id")
	}
	return created.ID, nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return failure.Newf(failure.KindRemoteStore, op, "failed to decode response: %v", err)
	}
	return nil
}

// do stamps the bearer token, sends req and classifies the outcome. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op string, req *http.Request) (*http.Response, error) {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := strings.TrimSpace(string(body))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &failure.Error{Kind: failure.KindAuthRejected, Op: op, Status: resp.StatusCode, Message: message}
	}
	return nil, failure.Remote(op, resp.StatusCode, message)
}

func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

var _ storage.RemoteStore = (*Client)(nil)
