package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cfgsync-go/internal/cfgsync"
)

func isNotFound(err error) bool { return errors.Is(err, cfgsync.ErrNotFound) }

// DefaultTimeout bounds every remote call. The source system had no timeout
// at all; a hung backend therefore hung the caller. A bounded timeout turns
// that into the regular fallback path.
const DefaultTimeout = 10 * time.Second

// httpClient is the shared HTTP+JSON plumbing for the store and the account
// directory.
type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newHTTPClient(baseURL, apiKey string, timeout time.Duration) *httpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is the standard error body from the server.
type apiError struct {
	Detail string `json:"detail"`
}

// do executes a request and decodes the JSON response into result (when
// non-nil). Transport failures and 5xx responses map to
// ErrRemoteUnavailable, 404 to ErrNotFound, and 4xx write refusals to
// ErrValidationRejected.
func (c *httpClient) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", cfgsync.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", cfgsync.ErrRemoteUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		detail := ""
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil {
			detail = apiErr.Detail
		}
		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: HTTP %d: %s", cfgsync.ErrRemoteUnavailable, resp.StatusCode, detail)
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", cfgsync.ErrNotFound, detail)
		default:
			return fmt.Errorf("%w: HTTP %d: %s", cfgsync.ErrValidationRejected, resp.StatusCode, detail)
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// HTTPStore talks to the remote configuration service over HTTP+JSON.
type HTTPStore struct {
	client *httpClient
}

var _ cfgsync.RemoteStore = (*HTTPStore)(nil)

// NewHTTPStore creates a store client for the given base URL. A
// non-positive timeout falls back to DefaultTimeout.
func NewHTTPStore(baseURL, apiKey string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{client: newHTTPClient(baseURL, apiKey, timeout)}
}

// checkResponse is the body of GET /config/check.
type checkResponse struct {
	Configured bool `json:"configured"`
}

// configEnvelope wraps the document on the config endpoints. IsDefault is
// set when the server has no stored document and is answering with its
// defaults.
type configEnvelope struct {
	Config    *cfgsync.ConfigDocument `json:"config"`
	IsDefault bool                    `json:"is_default"`
}

func (s *HTTPStore) Exists(ctx context.Context) (bool, error) {
	var resp checkResponse
	if err := s.client.do(ctx, http.MethodGet, "/config/check", nil, &resp); err != nil {
		return false, err
	}
	return resp.Configured, nil
}

func (s *HTTPStore) Load(ctx context.Context) (*cfgsync.ConfigDocument, error) {
	var resp configEnvelope
	if err := s.client.do(ctx, http.MethodGet, "/config", nil, &resp); err != nil {
		return nil, err
	}
	if resp.IsDefault || resp.Config == nil {
		return nil, fmt.Errorf("no stored configuration: %w", cfgsync.ErrNotFound)
	}
	return resp.Config, nil
}

func (s *HTTPStore) Update(ctx context.Context, patch *cfgsync.SectionPatch) (*cfgsync.ConfigDocument, error) {
	var resp configEnvelope
	if err := s.client.do(ctx, http.MethodPost, "/config", patch, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

func (s *HTTPStore) Save(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	var resp configEnvelope
	if err := s.client.do(ctx, http.MethodPut, "/config", doc, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

func (s *HTTPStore) Replace(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	// The older API exposed replace as a distinct action; on the wire it is
	// the same whole-document write.
	return s.Save(ctx, doc)
}

func (s *HTTPStore) Delete(ctx context.Context) error {
	err := s.client.do(ctx, http.MethodDelete, "/config", nil, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *HTTPStore) Ping(ctx context.Context) error {
	return s.client.do(ctx, http.MethodGet, "/health", nil, nil)
}

// HTTPAccountDirectory talks to the external user-account service.
type HTTPAccountDirectory struct {
	client *httpClient
}

var _ cfgsync.AccountDirectory = (*HTTPAccountDirectory)(nil)

// NewHTTPAccountDirectory creates an account client for the given base URL.
func NewHTTPAccountDirectory(baseURL, apiKey string, timeout time.Duration) *HTTPAccountDirectory {
	return &HTTPAccountDirectory{client: newHTTPClient(baseURL, apiKey, timeout)}
}

func (d *HTTPAccountDirectory) List(ctx context.Context) ([]cfgsync.UserAccount, error) {
	var resp []cfgsync.UserAccount
	if err := d.client.do(ctx, http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (d *HTTPAccountDirectory) ToggleActive(ctx context.Context, username string) (*cfgsync.UserAccount, error) {
	var resp cfgsync.UserAccount
	if err := d.client.do(ctx, http.MethodPut, "/users/"+username+"/toggle", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (d *HTTPAccountDirectory) Create(ctx context.Context, username, password string) (*cfgsync.UserAccount, error) {
	body := map[string]string{"username": username, "password": password}
	var resp cfgsync.UserAccount
	if err := d.client.do(ctx, http.MethodPost, "/users", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
