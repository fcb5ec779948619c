package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/zkblueprint/internal/llm"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// ErrMissingAPIKey is returned by NewClient when no key is configured.
var ErrMissingAPIKey = errors.New("anthropic api key is required")

type Client struct {
	apiKey string
	model  string
	url    string
	client *http.Client
}

func NewClient(apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		url:    apiURL,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// SetTestTransport points the client at a test server instead of the public API.
func (c *Client) SetTestTransport(url string) {
	c.url = url
}

func (c *Client) Model() string { return c.model }

type request struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type response struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements llm.Provider. A response whose first content block is not
// text yields an empty string.
func (c *Client) Send(ctx context.Context, system string, messages []llm.Message, params llm.Params) (string, error) {
	temperature := params.Temperature
	reqBody := request{
		Model:       c.model,
		MaxTokens:   params.MaxTokens,
		Temperature: &temperature,
		System:      system,
		Messages:    messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Type != "text" {
		return "", nil
	}
	return apiResp.Content[0].Text, nil
}
