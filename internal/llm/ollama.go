package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tunesmith/internal/core"
)

const defaultOllamaModel = "llama3.2"

type OllamaClient struct {
	config     *core.LLMConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaClient(config *core.LLMConfig, logger *zap.Logger) (*OllamaClient, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaClient{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: baseURL,
	}, nil
}

func (o *OllamaClient) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	model := o.config.Model
	if model == "" {
		model = defaultOllamaModel
	}

	reqBody := ollamaRequest{
		Model:  model,
		System: system,
		Prompt: user,
		Stream: false,
		Format: "json",
		Options: map[string]any{
			"temperature": defaultTemperature,
			"num_predict": maxTokens,
		},
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	o.logger.Debug("Calling Ollama", zap.String("model", model))

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}

	return parsed.Response, nil
}
