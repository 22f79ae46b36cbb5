package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/pentesthub/hubvault/internal/config"
	"github.com/pentesthub/hubvault/internal/events"
	"github.com/pentesthub/hubvault/internal/models"
)

// HTTPStore talks to a generic contents API: GET/PUT/HEAD per resource
// path under a container locator, with revision tags carried in ETag
// and If-Match headers. Both the Gist dialect and the repo-contents
// dialect fit this shape behind a thin server; the store assumes
// neither.
type HTTPStore struct {
	client  *http.Client
	baseURL string
	token   string
	logger  *events.Logger

	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewHTTPStore creates an HTTP remote store.
func NewHTTPStore(cfg *config.RemoteConfig, logger *events.Logger) *HTTPStore {
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

	return &HTTPStore{
		client:     &http.Client{Transport: transport},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		timeout:    cfg.Timeout,
		logger:     logger.WithField("component", "http_remote"),
	}
}

// Read fetches a resource and its revision tag.
func (s *HTTPStore) Read(ctx context.Context, locator, path string) (*Resource, error) {
	var resource *Resource

	err := s.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		req, err := s.newRequest(ctx, http.MethodGet, locator, path, nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return s.mapTransportError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			content, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read response: %w", err)
			}
			resource = &Resource{
				Content:     content,
				RevisionTag: resp.Header.Get("ETag"),
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return models.ErrRemoteNotFound
		default:
			return s.statusError(resp, locator, path)
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(resource.Content),
	}).Debug("Read remote resource")

	return resource, nil
}

// Write stores content, conditionally when expectedRevision is set.
func (s *HTTPStore) Write(ctx context.Context, locator, path string, content []byte, expectedRevision string) (string, error) {
	var newRevision string

	err := s.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		req, err := s.newRequest(ctx, http.MethodPut, locator, path, bytes.NewReader(content))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if expectedRevision != "" {
			req.Header.Set("If-Match", expectedRevision)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return s.mapTransportError(err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			newRevision = resp.Header.Get("ETag")
			return nil
		case http.StatusConflict, http.StatusPreconditionFailed:
			return models.ErrRemoteConflict
		default:
			return s.statusError(resp, locator, path)
		}
	})
	if err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"size": len(content),
	}).Debug("Wrote remote resource")

	return newRevision, nil
}

// Probe checks existence with a HEAD request.
func (s *HTTPStore) Probe(ctx context.Context, locator, path string) (bool, error) {
	var exists bool

	err := s.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		req, err := s.newRequest(ctx, http.MethodHead, locator, path, nil)
		if err != nil {
			return err
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return s.mapTransportError(err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			exists = true
			return nil
		case http.StatusNotFound:
			exists = false
			return nil
		default:
			return s.statusError(resp, locator, path)
		}
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create provisions a new container, returning its locator.
func (s *HTTPStore) Create(ctx context.Context, name string) (string, error) {
	var locator string

	err := s.retry(ctx, func(ctx context.Context) error {
		body, err := json.Marshal(map[string]string{"name": name})
		if err != nil {
			return fmt.Errorf("marshal create request: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		s.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return s.mapTransportError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return s.statusError(resp, "", "")
		}

		var result struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("decode create response: %w", err)
		}
		if result.ID == "" {
			return fmt.Errorf("create response missing id")
		}
		locator = result.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.WithField("locator", locator).Info("Created remote container")
	return locator, nil
}

func (s *HTTPStore) newRequest(ctx context.Context, method, locator, path string, body io.Reader) (*http.Request, error) {
	u := s.baseURL + "/" + url.PathEscape(locator) + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	return req, nil
}

func (s *HTTPStore) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

// retry runs fn with bounded exponential backoff on retryable errors.
func (s *HTTPStore) retry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	delay := s.retryDelay

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("Retrying remote call")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return s.mapTransportError(ctx.Err())
			}
			delay *= 2
		}

		lastErr = fn(ctx)
		if lastErr == nil || !s.isRetryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (s *HTTPStore) isRetryable(err error) bool {
	if errors.Is(err, models.ErrRemoteNotFound) || errors.Is(err, models.ErrRemoteConflict) {
		return false
	}
	var remoteErr *models.RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode >= 500 || remoteErr.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, models.ErrNetworkTimeout) || errors.Is(err, models.ErrRemoteUnavailable)
}

func (s *HTTPStore) mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrNetworkTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrNetworkTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrRemoteUnavailable, err)
}

func (s *HTTPStore) statusError(resp *http.Response, locator, path string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &models.RemoteError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		Locator:    locator,
		Path:       path,
	}
}
