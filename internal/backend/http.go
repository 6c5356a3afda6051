package backend

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

var ErrTimeout = errors.New("backend call timed out")

// HTTPNLU calls an NLU service over JSON/HTTP.
//
//	POST {base}/api/nlu/sentiment {"text": ...} -> {"label": ..., "score": ...}
//	POST {base}/api/nlu/entities  {"text": ...} -> {"entities": [{"text","type","score"}]}
type HTTPNLU struct {
	baseURL string
	client  *http.Client
}

// HTTPGenerator calls a text generation service over JSON/HTTP.
//
//	POST {base}/api/ai/generate {"prompt": ..., "parameters": {...}} -> {"text": ...}
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

type textRequest struct {
	Text string `json:"text"`
}

type entitiesResponse struct {
	Entities []Entity `json:"entities"`
}

type generateRequest struct {
	Prompt     string           `json:"prompt"`
	Parameters GenerationParams `json:"parameters"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func NewHTTPNLU(baseURL string, timeout time.Duration) *HTTPNLU {
	return &HTTPNLU{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Ping checks the service health endpoint.
func (n *HTTPNLU) Ping(ctx context.Context) error {
	return ping(ctx, n.client, n.baseURL+"/health")
}

func (n *HTTPNLU) ClassifySentiment(ctx context.Context, text string) (Sentiment, error) {
	var out Sentiment
	if err := postJSON(ctx, n.client, n.baseURL+"/api/nlu/sentiment", textRequest{Text: text}, &out); err != nil {
		return Sentiment{}, err
	}
	return normalizeSentiment(out), nil
}

func (n *HTTPNLU) ExtractEntities(ctx context.Context, text string) ([]Entity, error) {
	var out entitiesResponse
	if err := postJSON(ctx, n.client, n.baseURL+"/api/nlu/entities", textRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

// Ping checks the service health endpoint.
func (g *HTTPGenerator) Ping(ctx context.Context) error {
	return ping(ctx, g.client, g.baseURL+"/health")
}

func (g *HTTPGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	var out generateResponse
	if err := postJSON(ctx, g.client, g.baseURL+"/api/ai/generate", generateRequest{Prompt: prompt, Parameters: params}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func normalizeSentiment(s Sentiment) Sentiment {
	label := strings.ToLower(strings.TrimSpace(s.Label))
	switch label {
	case "positive", "negative", "neutral":
	default:
		label = "neutral"
	}
	score := s.Score
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return Sentiment{Label: label, Score: score}
}

func ping(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: health check returned status %d", ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrBadResponse, err)
	}
	return nil
}
