package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultGroqModel is used when no model name is configured.
	DefaultGroqModel = "llama-3.1-8b-instant"

	maxErrorBody = 2000
)

// Groq completes prompts against an OpenAI-compatible chat completions API.
type Groq struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewGroq creates a Groq oracle. A nil httpClient uses http.DefaultClient; the
// deadline comes from the request context.
func NewGroq(httpClient *http.Client, baseURL, apiKey, model string) *Groq {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if model == "" {
		model = DefaultGroqModel
	}
	return &Groq{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete implements Oracle.
func (g *Groq) Complete(ctx context.Context, p Prompt) (string, error) {
	reqBody := chatRequest{
		Model:       g.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.System != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: p.System})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: p.User})

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("Groq.Complete: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("Groq.Complete: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Groq.Complete: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("Groq.Complete: status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("Groq.Complete: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}
