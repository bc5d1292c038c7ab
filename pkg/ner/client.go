package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/cardio-extract/pkg/common/config"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
	"github.com/synaptica-ai/cardio-extract/pkg/gateway/httpclient"
)

type Options struct {
	BaseURL  string
	Token    string
	Model    string
	Timeout  time.Duration
	Attempts int
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:  cfg.NERBaseURL,
		Token:    cfg.NERAPIToken,
		Model:    cfg.NERModel,
		Timeout:  cfg.NERTimeout,
		Attempts: cfg.ClientRetryAttempts,
	}
}

// Client calls a token-classification model served behind a
// Hugging Face style inference endpoint.
type Client struct {
	http     *http.Client
	endpoint string
	attempts int
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("ner base url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("ner model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Client{
		http:     httpclient.NewWithToken(opts.Timeout, opts.Token),
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/models/" + opts.Model,
		attempts: opts.Attempts,
	}, nil
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// span is one element of the token-classification output. Ungrouped
// pipelines report the label under "entity" instead of "entity_group".
type span struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// Recognize returns the grouped entities found in text.
func (c *Client) Recognize(ctx context.Context, text string) ([]extraction.Entity, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs:     text,
		Parameters: inferenceParameters{AggregationStrategy: "simple"},
		Options:    inferenceOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("encode ner request: %w", err)
	}

	var spans []span
	err = httpclient.Retry(ctx, c.attempts, 250*time.Millisecond, func() error {
		out, err := c.do(ctx, body)
		if err != nil {
			return err
		}
		spans = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	entities := make([]extraction.Entity, 0, len(spans))
	for _, s := range spans {
		label := s.EntityGroup
		if label == "" {
			label = strings.TrimPrefix(strings.TrimPrefix(s.Entity, "B-"), "I-")
		}
		word := s.Word
		if word == "" {
			word = slice(text, s.Start, s.End)
		}
		entities = append(entities, extraction.Entity{Label: label, Text: word, Score: s.Score})
	}
	return entities, nil
}

// slice cuts text by character offsets as reported by the inference server.
func slice(text string, start, end int) string {
	runes := []rune(text)
	if start < 0 || end > len(runes) || start >= end {
		return ""
	}
	return string(runes[start:end])
}

func (c *Client) do(ctx context.Context, body []byte) ([]span, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("ner inference: %w", err)
	}

	var spans []span
	if err := json.NewDecoder(resp.Body).Decode(&spans); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	return spans, nil
}
