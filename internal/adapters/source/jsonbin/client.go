package jsonbin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default document locations and client limits.
const (
	DefaultBulletinURL    = "https://api.jsonbin.io/v3/b/6822940a8a456b79669c86e9/latest"
	DefaultPermURL        = "https://api.jsonbin.io/v3/b/68229ba28a456b79669c8a65/latest"
	defaultTimeout        = 30 * time.Second
	defaultInitialBackoff = 2 * time.Second
	maxBodyBytes          = 8 << 20
)

// ErrPermanent marks a response that retrying cannot fix.
var ErrPermanent = errors.New("permanent fetch failure")

// Options configures a Client.
type Options struct {
	BulletinURL    string
	PermURL        string
	APIKey         string
	Timeout        time.Duration
	// MaxRetries is the number of retries after the first attempt; zero disables retrying.
	MaxRetries     int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client fetches bulletin and PERM documents from the document store.
type Client struct {
	client         *http.Client
	bulletinURL    string
	permURL        string
	apiKey         string
	maxRetries     int
	initialBackoff time.Duration
}

// New creates a client, filling unset options with defaults.
func New(opts Options) *Client {
	if strings.TrimSpace(opts.BulletinURL) == "" {
		opts.BulletinURL = DefaultBulletinURL
	}
	if strings.TrimSpace(opts.PermURL) == "" {
		opts.PermURL = DefaultPermURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		client:         client,
		bulletinURL:    opts.BulletinURL,
		permURL:        opts.PermURL,
		apiKey:         strings.TrimSpace(opts.APIKey),
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
	}
}

// FetchBulletin retrieves the raw bulletin document.
func (c *Client) FetchBulletin(ctx context.Context) ([]byte, error) {
	body, err := c.fetchWithRetry(ctx, c.bulletinURL)
	if err != nil {
		return nil, fmt.Errorf("fetch bulletin: %w", err)
	}
	return body, nil
}

// FetchPermDocument retrieves the raw PERM processing document.
func (c *Client) FetchPermDocument(ctx context.Context) ([]byte, error) {
	body, err := c.fetchWithRetry(ctx, c.permURL)
	if err != nil {
		return nil, fmt.Errorf("fetch perm document: %w", err)
	}
	return body, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := c.initialBackoff

	attempts := c.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		body, err := c.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrPermanent) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrPermanent, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Master-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited (HTTP 429)")
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status code: %d", ErrPermanent, resp.StatusCode)
	}
}
