// Package remote provides the feature extraction transport for the
// HTTP image analysis service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.ExtractionTransport = (*Client)(nil)

// Service endpoints and form field.
const (
	ExtractPath = "/extract-images"
	HealthPath  = "/health"
	ImageField  = "image"

	// maxErrorBody bounds how much of an error response is echoed back.
	maxErrorBody = 512
)

// Config holds configuration for the extraction client.
type Config struct {
	// BaseURL is the service base URL (default: http://localhost:5000).
	BaseURL string

	// Timeout is the HTTP client timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int
}

// ConfigFrom maps extraction settings onto a client config.
func ConfigFrom(s domain.ExtractionSettings) Config {
	return Config{
		BaseURL:           s.BaseURL,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
	}
}

// Client posts image batches to the extraction service.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// extractResult is one element of the service response array.
type extractResult struct {
	Keywords   []string  `json:"keywords"`
	Embeddings []float32 `json:"embeddings"`
}

// NewClient creates a new extraction client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultExtractionURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = domain.DefaultRequestTimeout
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Extract sends every image in a single multipart request.
func (c *Client) Extract(ctx context.Context, images []domain.ImagePayload) ([]driven.ExtractionResult, error) {
	if len(images) == 0 {
		return nil, nil
	}

	body, contentType, err := encodeImages(images)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ExtractPath, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var results []extractResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]driven.ExtractionResult, len(results))
	for i, r := range results {
		out[i] = driven.ExtractionResult{
			Keywords:  r.Keywords,
			Embedding: r.Embeddings,
		}
	}
	return out, nil
}

// Ping validates the service is reachable via its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("extraction: failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("extraction: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func encodeImages(images []domain.ImagePayload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, img := range images {
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ImageField, img.Filename))
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func statusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("extraction: service returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return fmt.Errorf("extraction: service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
