// Package capability is the OpenAI-compatible HTTP client behind the
// vision, generation, and embedding stages. Every call is bounded by the
// caller's context; transient failures are retried with capped backoff.
// An unconfigured client (no API key) reports unavailable and the stages
// fall back to their deterministic paths.
package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"redress/internal/config"
)

// Client talks to an OpenAI-compatible API for chat, vision, and
// embeddings.
type Client struct {
	endpoint    string
	apiKey      string
	chatModel   string
	visionModel string
	embedModel  string
	http        *http.Client
}

// New builds a client from configuration.
func New(cfg config.CapabilityConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:      cfg.APIKey,
		chatModel:   cfg.ChatModel,
		visionModel: cfg.VisionModel,
		embedModel:  cfg.EmbedModel,
		http:        &http.Client{Timeout: timeout},
	}
}

// Available reports whether the client is configured to make calls.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != "" && c.endpoint != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends a system+user exchange and returns the assistant text.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("capability client not configured")
	}
	req := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	return c.complete(ctx, req)
}

// ChatJSON sends a system+user exchange expecting a JSON object reply
// and decodes it into out. Code fences around the object are tolerated.
func (c *Client) ChatJSON(ctx context.Context, system, user string, out any) error {
	text, err := c.Chat(ctx, system, user)
	if err != nil {
		return err
	}
	return decodeJSONReply(text, out)
}

// imageContent is the multi-part user content for a vision call.
type imageContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// VisionJSON sends a prompt plus one inline image and decodes the JSON
// object reply into out.
func (c *Client) VisionJSON(ctx context.Context, prompt string, image []byte, mimeType string, out any) error {
	if !c.Available() {
		return fmt.Errorf("capability client not configured")
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	content := []imageContent{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: dataURL}},
	}
	req := chatRequest{
		Model:    c.visionModel,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}
	text, err := c.complete(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSONReply(text, out)
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if !c.Available() {
		return nil, fmt.Errorf("capability client not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	err := c.post(ctx, "/embeddings", embedRequest{Model: c.embedModel, Input: texts}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// post issues the request with retry on transport errors, 429, and 5xx.
func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("do request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("api status %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("api error %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		}
		if v == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// decodeJSONReply parses a JSON object out of an assistant reply,
// stripping markdown code fences when the model wraps the object.
func decodeJSONReply(text string, out any) error {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
