package hf

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

const defaultBaseURL = "https://api-inference.huggingface.co"

// Client performs HTTP requests to a Hugging Face style inference server.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs an inference client. The API key is optional for
// self-hosted servers.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type jsonRequest struct {
	Inputs     any `json:"inputs"`
	Parameters any `json:"parameters,omitempty"`
}

// infer posts a JSON payload to the model endpoint and decodes the reply.
func (c *Client) infer(ctx context.Context, model string, inputs, parameters, out any) error {
	payload, err := json.Marshal(jsonRequest{Inputs: inputs, Parameters: parameters})
	if err != nil {
		return fmt.Errorf("encode inference request: %w", err)
	}
	return c.do(ctx, model, "application/json", payload, out)
}

// inferBinary posts raw bytes (images) to the model endpoint.
func (c *Client) inferBinary(ctx context.Context, model, contentType string, data []byte, out any) error {
	return c.do(ctx, model, contentType, data, out)
}

func (c *Client) do(ctx context.Context, model, contentType string, payload []byte, out any) error {
	if strings.TrimSpace(model) == "" {
		return errors.New("inference model cannot be empty")
	}
	endpoint := c.baseURL + "/models/" + strings.TrimLeft(model, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build inference request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request inference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("inference request failed: model=%s status=%d body=%s", model, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inference response: %w", err)
	}
	return nil
}
