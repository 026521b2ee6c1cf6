package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Oracle answers a free-text prompt with free text. Implementations must honour
// ctx cancellation.
type Oracle interface {
	Decide(ctx context.Context, prompt string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface
type OracleFunc func(ctx context.Context, prompt string) (string, error)

func (f OracleFunc) Decide(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const maxOracleBody = 1 << 20

// OllamaOracle calls an Ollama-style /api/generate endpoint without streaming
type OllamaOracle struct {
	URL    string
	Model  string
	Client *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaOracle builds a client for cfg
func NewOllamaOracle(cfg OracleConfig) *OllamaOracle {
	timeout := time.Duration(cfg.Timeout * float64(time.Second))
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OllamaOracle{
		URL:    cfg.URL,
		Model:  cfg.Model,
		Client: &http.Client{Timeout: timeout},
	}
}

// Decide posts the prompt and returns the model's text
func (o *OllamaOracle) Decide(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: o.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxOracleBody))
	if err != nil {
		return "", fmt.Errorf("oracle read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	var out ollamaResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("oracle decode: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("oracle: %s", out.Error)
	}
	return out.Response, nil
}
