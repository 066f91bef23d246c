package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/ml-services/internal/domain/article"
	"github.com/yanqian/ml-services/internal/domain/vision"
)

const (
	defaultUserAgent = "ml-services/1.0 (+https://github.com/yanqian/ml-services)"
	defaultMaxBytes  = 10 << 20
	maxRedirects     = 10
)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// Objects reads objects from a bucket store.
type Objects interface {
	Get(ctx context.Context, bucket, key string, limit int64) ([]byte, error)
}

// Config tunes the downloader.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// Document is a downloaded resource.
type Document struct {
	// URL is the final location after redirects.
	URL         string
	ContentType string
	Body        []byte
}

// Client downloads web pages and images over http(s), and s3:// objects
// when an object store is configured.
type Client struct {
	cfg        Config
	httpClient *http.Client
	objects    Objects
	logger     *slog.Logger
}

// NewClient builds a downloader. objects may be nil.
func NewClient(cfg Config, objects Objects, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		objects: objects,
		logger:  logger.With("component", "infra.fetch"),
	}
}

// Get downloads rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Document{}, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.getHTTP(ctx, u.String())
	case "s3":
		return c.getObject(ctx, u)
	default:
		return Document{}, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

// FetchPage implements article.Fetcher.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (article.Page, error) {
	doc, err := c.Get(ctx, rawURL)
	if err != nil {
		c.logger.Warn("page fetch failed", "url", rawURL, "error", err)
		return article.Page{}, err
	}
	return article.Page{URL: doc.URL, Body: doc.Body}, nil
}

// Fetch implements vision.ImageSource.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	doc, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return doc.Body, nil
}

func (c *Client) getHTTP(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Document{}, fmt.Errorf("request %s: status=%d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > c.cfg.MaxBytes {
		return Document{}, ErrTooLarge
	}
	body, err := readLimited(resp.Body, c.cfg.MaxBytes)
	if err != nil {
		return Document{}, err
	}
	return Document{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) getObject(ctx context.Context, u *url.URL) (Document, error) {
	if c.objects == nil {
		return Document{}, errors.New("object store is not configured")
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return Document{}, fmt.Errorf("invalid object url %q", u.String())
	}
	body, err := c.objects.Get(ctx, bucket, key, c.cfg.MaxBytes)
	if err != nil {
		return Document{}, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return Document{URL: u.String(), ContentType: http.DetectContentType(body), Body: body}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}
	return body, nil
}

var (
	_ article.Fetcher    = (*Client)(nil)
	_ vision.ImageSource = (*Client)(nil)
)
