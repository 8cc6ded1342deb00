package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pevans/blogscout"
)

// ErrMissingCredential marks a tier that cannot run because its credential
// was never configured. The cascade treats it as fatal for that tier only
// and falls through to the next strategy.
var ErrMissingCredential = errors.New("rendering service credential not configured")

// RenderOptions control one rendering-service call.
type RenderOptions struct {
	// Format is the requested output, "html" or "markdown".
	Format string

	// RenderJS asks the service to execute page JavaScript before
	// capturing.
	RenderJS bool

	// WithLinks asks for a link summary alongside the content.
	WithLinks bool

	// RemoveSelectors lists CSS selectors the service should strip before
	// returning content.
	RemoveSelectors []string
}

// renderRequest is the wire shape POSTed to the rendering endpoint.
type renderRequest struct {
	URL             string   `json:"url"`
	Format          string   `json:"format,omitempty"`
	RenderJS        bool     `json:"render_js"`
	WithLinks       bool     `json:"with_links_summary,omitempty"`
	RemoveSelectors []string `json:"remove_selectors,omitempty"`
}

// renderEnvelope is the JSON response shape; the service may also reply
// with a raw text or HTML body, which is accepted as-is.
type renderEnvelope struct {
	Content string   `json:"content"`
	Links   []string `json:"links,omitempty"`
	Title   string   `json:"title,omitempty"`
}

// Renderer calls the remote content-rendering service, which handles
// JavaScript-heavy pages a plain fetch cannot.
type Renderer struct {
	cfg        blogscout.Config
	httpClient *http.Client
	logger     *log.Logger
}

// NewRenderer builds the rendering tier. The endpoint and bearer token come
// from configuration; calls fail with ErrMissingCredential when the token
// is absent.
func NewRenderer(cfg blogscout.Config, logger *log.Logger) *Renderer {
	return &Renderer{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RenderTimeout,
		},
		logger: logger,
	}
}

// Render fetches a target URL through the rendering service and returns the
// rendered content. A 429 triggers bounded retry with backoff; any other
// non-2xx is a hard failure for this call, leaving the caller to fall back
// to the next tier.
func (r *Renderer) Render(ctx context.Context, targetURL string, opts RenderOptions) (string, error) {
	if r.cfg.RenderToken == "" || r.cfg.RenderEndpoint == "" {
		return "", ErrMissingCredential
	}

	body, err := withRetry(ctx, r.cfg, r.logger, "render", func() (string, error) {
		return r.renderOnce(ctx, targetURL, opts)
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", targetURL, err)
	}
	return body, nil
}

func (r *Renderer) renderOnce(ctx context.Context, targetURL string, opts RenderOptions) (string, error) {
	payload, err := json.Marshal(renderRequest{
		URL:             targetURL,
		Format:          opts.Format,
		RenderJS:        opts.RenderJS,
		WithLinks:       opts.WithLinks,
		RemoveSelectors: opts.RemoveSelectors,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.RenderEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.RenderToken)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read render response: %w", err)
	}

	// The service replies either with a JSON envelope or a raw body; both
	// forms must be accepted.
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") || looksLikeJSON(raw) {
		var envelope renderEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Content != "" {
			return envelope.Content, nil
		}
	}
	return string(raw), nil
}

func looksLikeJSON(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
