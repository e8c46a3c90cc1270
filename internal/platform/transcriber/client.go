package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Provider statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ErrTransient marks failures worth retrying: network errors, 429 and 5xx.
var ErrTransient = errors.New("transcriber: transient failure")

type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

func (r Result) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit asks the provider to transcribe the audio at audioURL.
func (c *Client) Submit(ctx context.Context, audioURL string) (Result, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return Result{}, err
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/transcript", bytes.NewReader(body))
}

func (c *Client) Fetch(ctx context.Context, id string) (Result, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/transcript/"+id, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, errors.Join(ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Result{}, fmt.Errorf("%w: %s %s returned %d", ErrTransient, method, url, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("transcriber: %s %s returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode transcriber response: %w", err)
	}
	return res, nil
}
