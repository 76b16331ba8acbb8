package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Response captures the transport-level outcome of one outbound call.
type Response struct {
	StatusOK   bool
	StatusCode int
	Status     string
	Body       []byte
}

// Poster is the transport surface the dispatcher needs.
type Poster interface {
	Post(ctx context.Context, payload any) (Response, error)
}

// Client posts JSON payloads to the analysis endpoint.
type Client struct {
	http   *http.Client
	url    string
	apiKey string
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		url:    url,
		apiKey: apiKey,
	}
}

// Post sends one JSON body and returns status plus best-effort body text.
// A body read failure never masks the response status.
func (c *Client) Post(ctx context.Context, payload any) (Response, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return Response{
		StatusOK:   resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}, nil
}
