// Package inference calls the third-party image-generation router and
// normalizes its response into raw image bytes.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"pixelmint/api/internal/config"
)

var (
	// ErrProviderStatus wraps any non-2xx answer from the provider.
	ErrProviderStatus = errors.New("provider returned error status")

	// ErrUnrecognizedResponse means no known envelope shape yielded image
	// data. The decoder fails closed rather than guessing.
	ErrUnrecognizedResponse = errors.New("provider response not recognized")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	token      string
}

func NewClient(cfg config.InferenceConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		token:      cfg.Token,
	}
}

type Request struct {
	Prompt string
	Width  int
	Height int
}

type generateBody struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	ResponseFormat string `json:"response_format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Generate performs exactly one provider call, no retries, and returns the
// decoded image bytes.
func (c *Client) Generate(ctx context.Context, req Request) ([]byte, error) {
	payload, err := json.Marshal(generateBody{
		Model:          c.model,
		Prompt:         req.Prompt,
		ResponseFormat: "b64_json",
		Width:          req.Width,
		Height:         req.Height,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrProviderStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return body, nil
	}

	encoded, ok := extractBase64(body)
	if !ok {
		return nil, ErrUnrecognizedResponse
	}

	raw, err := base64.StdEncoding.DecodeString(stripDataURLPrefix(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}

type imageEnvelope struct {
	B64JSON string `json:"b64_json"`
	Image   string `json:"image"`
}

func (e imageEnvelope) payload() string {
	if e.B64JSON != "" {
		return e.B64JSON
	}
	return e.Image
}

// extractBase64 tries each known envelope shape in fixed priority order:
// a top-level array, an object with a nested data array, then an object
// carrying the field directly.
func extractBase64(body []byte) (string, bool) {
	var list []imageEnvelope
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 {
		if p := list[0].payload(); p != "" {
			return p, true
		}
	}

	var nested struct {
		Data []imageEnvelope `json:"data"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && len(nested.Data) > 0 {
		if p := nested.Data[0].payload(); p != "" {
			return p, true
		}
	}

	var direct imageEnvelope
	if err := json.Unmarshal(body, &direct); err == nil {
		if p := direct.payload(); p != "" {
			return p, true
		}
	}

	return "", false
}

var dataURLPrefix = regexp.MustCompile(`^data:image/[^;]+;base64,`)

func stripDataURLPrefix(encoded string) string {
	return dataURLPrefix.ReplaceAllString(encoded, "")
}
