package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/cardio-extract/pkg/common/config"
	"github.com/synaptica-ai/cardio-extract/pkg/gateway/httpclient"
)

const systemPrompt = "Eres un asistente clínico que extrae datos estructurados de narrativas médicas. Respondes únicamente con JSON."

var ErrEmptyCompletion = errors.New("llm returned no choices")

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	JSONMode    bool
	Timeout     time.Duration
	Attempts    int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
		JSONMode:    cfg.LLMJSONMode,
		Timeout:     cfg.LLMTimeout,
		Attempts:    cfg.ClientRetryAttempts,
	}
}

// Client talks to an OpenAI compatible chat completions endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	opts     Options
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("llm base url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Client{
		http:     httpclient.NewWithToken(opts.Timeout, opts.APIKey),
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		opts:     opts,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user turn and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.opts.Temperature,
	}
	if c.opts.JSONMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	var content string
	err = httpclient.Retry(ctx, c.opts.Attempts, 250*time.Millisecond, func() error {
		out, err := c.do(ctx, body)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := httpclient.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("chat completions: %w", err)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return result.Choices[0].Message.Content, nil
}
