// Package api uploads exported match recordings to the match archive.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TheFortz/combat/pkg/core"
)

const (
	healthcheckPath = "/healthcheck"
	uploadPath      = "/api/v1/matches/add"

	defaultTimeout = 30 * time.Second
)

// StatusError is returned when the archive answers with anything but 200.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Op, e.Status)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Healthcheck succeeds when the archive answers 200.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthcheckPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "healthcheck", Status: resp.StatusCode}
	}
	return nil
}

// Upload streams the recording at filePath as a multipart form. The file
// is never held in memory.
func (c *Client) Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	body, contentType, wait := c.stream(f, filepath.Base(filePath), meta)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, body)
	if err != nil {
		body.Close()
		wait()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	// the server may answer before reading the whole form
	body.Close()
	writeErr := wait()
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: "upload", Status: resp.StatusCode}
	}
	return writeErr
}

// stream writes the form into a pipe from a goroutine. wait returns the
// writer's error once it has finished.
func (c *Client) stream(file io.Reader, name string, meta core.UploadMetadata) (io.ReadCloser, string, func() error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	done := make(chan error, 1)
	go func() {
		err := writeForm(mw, file, name, c.fields(name, meta))
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
		done <- err
	}()
	return pr, mw.FormDataContentType(), func() error { return <-done }
}

func (c *Client) fields(name string, meta core.UploadMetadata) [][2]string {
	return [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"matchName", meta.MatchName},
		{"mapName", meta.MapName},
		{"matchDuration", strconv.FormatFloat(meta.MatchDuration, 'f', 3, 64)},
		{"tag", meta.Tag},
	}
}

func writeForm(w *multipart.Writer, file io.Reader, name string, fields [][2]string) error {
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}
