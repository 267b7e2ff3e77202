package metadata

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/utils"
)

// Failure reasons reported to the failure hook.
const (
	ReasonRequest     = "request"
	ReasonNetwork     = "network"
	ReasonContentType = "content_type"
	ReasonRead        = "read"
)

type OptFn func(*Fetcher)

// WithTimeout bounds each fetch. Zero leaves fetches unbounded.
func WithTimeout(d time.Duration) OptFn {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithMaxBytes caps how much of the body is read. Zero reads it all.
func WithMaxBytes(n int64) OptFn {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

func WithUserAgent(ua string) OptFn {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithFailureHook is called once per failed fetch with its reason.
func WithFailureHook(fn func(reason string)) OptFn {
	return func(f *Fetcher) {
		f.onFailure = fn
	}
}

// WithHTTPClient replaces the HTTP client. Timeout options applied
// afterwards modify it.
func WithHTTPClient(c *http.Client) OptFn {
	return func(f *Fetcher) {
		f.client = c
	}
}

// Fetcher downloads a page and runs an Extractor over it.
// Fetch never fails: every problem degrades to empty metadata.
type Fetcher struct {
	client    *http.Client
	extractor Extractor
	logger    logger.Logger
	userAgent string
	maxBytes  int64
	onFailure func(reason string)
}

// NewFetcher creates a fetcher using extractor.
func NewFetcher(extractor Extractor, log logger.Logger, opts ...OptFn) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		extractor: extractor,
		logger:    log,
		onFailure: func(string) {},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements domain.MetadataFetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) domain.Metadata {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return f.fail(ReasonRequest, rawURL, err, start)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return f.fail(ReasonNetwork, rawURL, err, start)
	}
	defer utils.CloseLogged(res.Body, f.logger, "response body of "+rawURL)

	// Error pages are scanned like any other page.
	contentType := res.Header.Get("Content-Type")
	if !isTextual(contentType) {
		f.onFailure(ReasonContentType)
		f.logger.Warn("skipping metadata extraction, unexpected content type",
			logger.String("url", rawURL),
			logger.String("content_type", contentType),
			logger.Duration("duration", time.Since(start)))
		return domain.Metadata{}
	}

	var body io.Reader = res.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(res.Body, f.maxBytes)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return f.fail(ReasonRead, rawURL, err, start)
	}

	meta := f.extractor.Extract(string(raw))

	f.logger.Debug("metadata fetched",
		logger.String("url", rawURL),
		logger.Int("status", res.StatusCode),
		logger.Bool("title", meta.Title != nil),
		logger.Bool("description", meta.Description != nil),
		logger.Duration("duration", time.Since(start)))

	return meta
}

func (f *Fetcher) fail(reason, rawURL string, err error, start time.Time) domain.Metadata {
	f.onFailure(reason)
	f.logger.Warn("metadata fetch failed",
		logger.String("url", rawURL),
		logger.String("reason", reason),
		logger.Error(err),
		logger.Duration("duration", time.Since(start)))
	return domain.Metadata{}
}

// isTextual accepts text/*, any *html or *xml type, and a missing header.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return strings.HasPrefix(mediaType, "text/") ||
		strings.Contains(mediaType, "html") ||
		strings.Contains(mediaType, "xml")
}
