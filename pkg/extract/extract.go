// Package extract pulls plain text out of uploaded course materials for the study aid.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// PDFPlaceholder is returned when a PDF was fetched but its text could not be read.
const PDFPlaceholder = "PDF content could not be extracted. Please download and review the file directly."

const (
	defaultMaxChars = 50000
	defaultMaxBytes = 25 << 20
	defaultTimeout  = 30 * time.Second
)

var errTooLarge = errors.New("file exceeds extraction limit")

// Options configures an Extractor.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	MaxBytes   int64
	MaxChars   int
	Logger     *zap.Logger
}

// Extractor fetches a file by URL and returns its text.
type Extractor struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	maxChars int
	logger   *zap.Logger
}

// New builds an Extractor with defaults for unset options.
func New(opts Options) *Extractor {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = defaultMaxChars
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Extractor{
		client:   opts.HTTPClient,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
		maxChars: opts.MaxChars,
		logger:   opts.Logger,
	}
}

// Extract never fails. Text types are returned as-is, PDFs are parsed, other types get a
// notice, and an unreachable file yields an empty string.
func (e *Extractor) Extract(ctx context.Context, fileURL, fileType string) string {
	kind := strings.ToUpper(strings.TrimSpace(fileType))
	switch kind {
	case "TXT", "MD", "CSV":
		body, err := e.fetch(ctx, fileURL)
		if err != nil {
			e.logger.Warn("extract fetch failed", zap.String("url", fileURL), zap.Error(err))
			return ""
		}
		return Truncate(strings.ToValidUTF8(string(body), "�"), e.maxChars)
	case "PDF":
		body, err := e.fetch(ctx, fileURL)
		if err != nil {
			e.logger.Warn("extract fetch failed", zap.String("url", fileURL), zap.Error(err))
			return ""
		}
		text, err := PDFText(body)
		if err != nil {
			e.logger.Warn("pdf extraction failed", zap.String("url", fileURL), zap.Error(err))
			return PDFPlaceholder
		}
		return Truncate(text, e.maxChars)
	default:
		return UnsupportedNotice(fileType)
	}
}

// UnsupportedNotice is the text returned for types without an extractor.
func UnsupportedNotice(fileType string) string {
	return fmt.Sprintf("File type %s detected. Content extraction for this file type is limited. Please review the file directly for detailed information.", fileType)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func (e *Extractor) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	if strings.TrimSpace(fileURL) == "" {
		return nil, errors.New("file url required")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if n > e.maxBytes {
		return nil, errTooLarge
	}
	return buf.Bytes(), nil
}
