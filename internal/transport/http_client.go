// Package transport handles communication with the remote API: JSON
// requests with retry, raw blob transfer, and the websocket change
// feed.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/TheMichaelB/notesync/internal/config"
	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
)

// Client handles HTTP communication with the API.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *events.Logger

	// Token may be replaced by a re-login while requests are in
	// flight on worker goroutines.
	tokenMu sync.RWMutex
	token   string

	// Retry configuration
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates an HTTP client.
func NewClient(cfg *config.APIConfig, logger *events.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &Client{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     logger.WithField("component", "http_client"),
	}
}

// SetToken sets the authentication token.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// GetToken returns the current authentication token.
func (c *Client) GetToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// DoJSON sends a JSON request and decodes the response into out when
// out is non-nil. A 404 response returns models.ErrNoteNotFound.
func (c *Client) DoJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	url := c.baseURL + path

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	log := c.logger
	if uid := events.UserID(ctx); uid != "" {
		log = log.WithField("user_id", uid)
	}
	if nid := events.NoteID(ctx); nid != "" {
		log = log.WithField("note_id", nid)
	}
	log.WithFields(map[string]interface{}{
		"method": method,
		"url":    url,
		"size":   len(body),
	}).Debug("Sending request")

	var respBody []byte
	err := c.retry(ctx, func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, body != nil)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		return c.checkStatus(resp.StatusCode, respBody)
	})
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}

// DownloadBlob fetches raw bytes from a path.
func (c *Client) DownloadBlob(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	var data []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, false)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read blob: %w", err)
		}

		if err := c.checkStatus(resp.StatusCode, body); err != nil {
			return err
		}

		data = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(data),
	}).Debug("Downloaded blob")

	return data, nil
}

// UploadBlob sends raw bytes to a path.
func (c *Client) UploadBlob(ctx context.Context, path string, data []byte) error {
	url := c.baseURL + path

	return c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, false)
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		return c.checkStatus(resp.StatusCode, body)
	})
}

func (c *Client) setHeaders(req *http.Request, hasJSONBody bool) {
	if hasJSONBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.userAgent)
	if token := c.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus maps response codes to typed errors.
func (c *Client) checkStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return models.ErrNoteNotFound
	}

	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		apiErr.StatusCode = status
		return &apiErr
	}
	return &models.APIError{
		StatusCode: status,
		Message:    string(body),
	}
}

// retry executes a function with exponential backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
			}).Debug("Retrying request")

			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !c.isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable reports whether a failed request is worth repeating.
// Client errors other than 429 are not.
func (c *Client) isRetryable(err error) bool {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode >= 500
	}
	if errors.Is(err, models.ErrNoteNotFound) {
		return false
	}
	return true
}
