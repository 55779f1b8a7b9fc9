package httpinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"

	plugindomain "kilometers.ai/pluginrepo/internal/core/domain/plugin"
	pluginports "kilometers.ai/pluginrepo/internal/core/ports/plugin"
)

// ErrUnexpectedStatus wraps non-200 responses from repositories and download hosts
var ErrUnexpectedStatus = errors.New("unexpected status")

// maxErrorBody caps how much of an error response ends up in an error message
const maxErrorBody = 512

// RepositoryClient fetches repository manifests and plugin packages over plain HTTP(S) GET
type RepositoryClient struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	logger    hclog.Logger
}

// ClientOption configures a RepositoryClient
type ClientOption func(*RepositoryClient)

// WithHeader adds a header sent with every request
func WithHeader(key, value string) ClientOption {
	return func(rc *RepositoryClient) { rc.headers[key] = value }
}

// NewRepositoryClient creates a client. The timeout applies to manifest fetches only;
// package downloads are bounded by the caller's context.
func NewRepositoryClient(timeout time.Duration, version string, logger hclog.Logger, opts ...ClientOption) *RepositoryClient {
	rc := &RepositoryClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: fmt.Sprintf("km-plugins/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH),
		headers:   map[string]string{},
		logger:    logger.Named("http"),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// FetchManifest downloads one repository manifest and decodes it as a list of definitions
func (c *RepositoryClient) FetchManifest(ctx context.Context, url string) ([]plugindomain.Definition, error) {
	resp, err := c.get(ctx, c.client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var defs []plugindomain.Definition
	if err := json.NewDecoder(resp.Body).Decode(&defs); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", url, err)
	}
	if defs == nil {
		defs = []plugindomain.Definition{}
	}

	c.logger.Debug("fetched manifest", "url", url, "plugins", len(defs))
	return defs, nil
}

// Download streams a package into w and returns the number of bytes written
func (c *RepositoryClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	// downloads ignore the manifest timeout
	downloadClient := &http.Client{Transport: c.client.Transport}

	resp, err := c.get(ctx, downloadClient, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("failed to download %s: got %d of %d bytes", url, n, resp.ContentLength)
	}

	c.logger.Debug("downloaded package", "url", url, "bytes", n)
	return n, nil
}

func (c *RepositoryClient) get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, fmt.Errorf("%w %d from %s: %s", ErrUnexpectedStatus, resp.StatusCode, url, string(body))
	}

	return resp, nil
}

var (
	_ pluginports.ManifestFetcher   = (*RepositoryClient)(nil)
	_ pluginports.PackageDownloader = (*RepositoryClient)(nil)
)
