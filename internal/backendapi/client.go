/**
 * @description
 * HTTP client for the marketplace REST API.
 * Implements the lifecycle backend contract for processes that do not own the
 * database, such as the one-shot retirement sweep.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 * - backend/internal/config
 * - backend/internal/lifecycle
 */

package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/lifecycle"
	"github.com/farm2consumer/backend/internal/session"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("backendapi: not found")

// StatusError is any other non-2xx answer.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backendapi: %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

var _ lifecycle.Backend = (*Client)(nil)

type Client struct {
	BaseURL      string
	ServiceToken string
	HTTPClient   *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:      cfg.Backend.URL,
		ServiceToken: cfg.Backend.ServiceToken,
		HTTPClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
	}
}

// FetchListings reads the public catalog.
func (c *Client) FetchListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	var resp productsResponse
	if err := c.do(ctx, http.MethodGet, "/products", sess.Token, nil, &resp); err != nil {
		return nil, err
	}
	return snapshots(resp.Products), nil
}

// FetchRecommendedListings reads the caller's recommendations. It needs a signed-in session.
func (c *Client) FetchRecommendedListings(ctx context.Context, sess session.Session) ([]lifecycle.Listing, error) {
	if sess.IsAnonymous() {
		return nil, fmt.Errorf("backendapi: recommendations need a signed-in user")
	}

	var resp recommendationsResponse
	path := "/recommendations/" + url.PathEscape(sess.UserID)
	if err := c.do(ctx, http.MethodGet, path, sess.Token, nil, &resp); err != nil {
		return nil, err
	}
	return snapshots(resp.Recommendations), nil
}

func (c *Client) DeleteListing(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(listingID), c.ServiceToken, nil, nil)
}

func (c *Client) CreateNotification(ctx context.Context, notice lifecycle.Notice) error {
	body := notificationRequest{
		UserID:    notice.OwnerID,
		ProductID: notice.ListingID,
		Title:     notice.Title,
		Message:   notice.Message,
		Type:      string(notice.Severity),
	}
	return c.do(ctx, http.MethodPost, "/notifications", c.ServiceToken, body, nil)
}

func (c *Client) RemoveFromRecommendationCache(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodDelete, "/recommendations/remove/"+url.PathEscape(listingID), c.ServiceToken, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		return nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("backendapi: decode %s %s: %w", method, path, err)
	}
	return nil
}
