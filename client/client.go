// Package client talks to the prediction service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrConnection = errors.New("error connecting")
	ErrTimeout    = errors.New("timeout error")
)

// HTTPStatusError is a non-2xx answer. Body holds the raw response text.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http error occurred: %s", e.Status)
}

type Client struct {
	client  *http.Client
	baseURL string
}

func New(host string, port int) *Client {
	return &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: "http://" + net.JoinHostPort(host, fmt.Sprint(port)),
	}
}

// PredictURL is the endpoint Predict posts to.
func (c *Client) PredictURL() string { return c.baseURL + "/predict" }

// Predict posts payload as JSON and decodes the JSON answer. It never
// retries. Failures are classified as ErrConnection, ErrTimeout or
// *HTTPStatusError; anything else is returned wrapped as is.
func (c *Client) Predict(ctx context.Context, payload interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PredictURL(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(raw)}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func classify(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET), isDialError(err):
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return fmt.Errorf("post prediction: %w", err)
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && errors.Is(urlErr.Err, io.EOF)
}
