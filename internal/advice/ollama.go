package advice

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

	"github.com/shaiso/Riskwatch/internal/domain"
)

const (
	defaultModel   = "llama3"
	defaultTimeout = 60 * time.Second
)

// ErrAdvisorRequest — запрос к генератору завершился ошибкой.
var ErrAdvisorRequest = errors.New("advisor request failed")

// OllamaConfig — конфигурация OllamaAdvisor.
type OllamaConfig struct {
	// URL — адрес Ollama, например "http://localhost:11434".
	URL string

	// Model — имя модели (default: llama3).
	Model string

	// Timeout — таймаут одного запроса (default: 60s).
	Timeout time.Duration

	// HTTPClient — опционально; если nil, создаётся свой.
	HTTPClient *http.Client
}

// OllamaAdvisor генерирует рекомендации через /api/generate.
type OllamaAdvisor struct {
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOllamaAdvisor создаёт OllamaAdvisor.
func NewOllamaAdvisor(cfg OllamaConfig) *OllamaAdvisor {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaAdvisor{
		url:     strings.TrimRight(cfg.URL, "/"),
		model:   model,
		timeout: timeout,
		client:  client,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Recommend отправляет prompt и разбирает ответ построчно.
func (a *OllamaAdvisor) Recommend(ctx context.Context, p *domain.Prediction) ([]string, error) {
	if a.url == "" {
		return nil, fmt.Errorf("%w: url is not configured", ErrAdvisorRequest)
	}

	prompt, err := RenderPrompt(p)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{Model: a.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrAdvisorRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrAdvisorRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdvisorRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrAdvisorRequest, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrAdvisorRequest, resp.StatusCode, truncate(string(respBody), 200))
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrAdvisorRequest, err)
	}
	if gr.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrAdvisorRequest, gr.Error)
	}

	return ParseLines(gr.Response), nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
