// Package classifier talks to an external category classifier over HTTP.
// The endpoint receives the rendered prompt plus the structured request and
// answers with a single JSON object.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response ends up in errors
const maxErrorBody = 512

// Config for the HTTP classifier
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// HTTPClassifier implements classification.Classifier
type HTTPClassifier struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
	logger *slog.Logger
}

type classifyRequest struct {
	Model   string                  `json:"model,omitempty"`
	Prompt  string                  `json:"prompt"`
	Account *classification.Request `json:"account"`
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// New creates an HTTP classifier. A missing URL is a configuration error.
func New(cfg Config, logger *slog.Logger) (*HTTPClassifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("classifier URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPClassifier{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Classify sends one account to the endpoint. Without an API key it answers
// other at zero confidence without calling out.
func (c *HTTPClassifier) Classify(ctx context.Context, req *classification.Request) (*classification.Suggestion, error) {
	if err := classification.ValidateRequest(req); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return classification.Unconfigured{}.Classify(ctx, req)
	}

	payload := classifyRequest{
		Model:   c.model,
		Prompt:  classification.BuildPrompt(req),
		Account: req,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, apperrors.ClassifierFailed(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, apperrors.ClassifierFailed(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-KEY", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.ClassifierFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.ClassifierFailed(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.ClassifierFailed(fmt.Errorf("invalid response: %w", err))
	}

	category, err := domain.ParseCategory(out.Category)
	if err != nil {
		return nil, apperrors.ClassifierFailed(err)
	}

	c.logger.Debug("classifier answered",
		slog.String("account", req.AccountNumber),
		slog.String("category", string(category)),
		slog.Float64("confidence", out.Confidence),
		slog.Duration("duration", time.Since(start)))

	return &classification.Suggestion{
		Category:   category,
		Confidence: out.Confidence,
		Rationale:  out.Reasoning,
		Source:     classification.SourceClassifier,
	}, nil
}
