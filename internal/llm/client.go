// Package llm is the single gateway to the LLM sidecar service. Every
// orchestration component calls through here; no provider-specific
// request or response shape leaks past this package.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dossierlab/dossier/internal/metrics"
	"github.com/dossierlab/dossier/internal/pricing"
	"github.com/dossierlab/dossier/internal/ratecontrol"
	"github.com/dossierlab/dossier/internal/tracing"
)

const defaultTimeout = 120 * time.Second

// Client talks to the LLM service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient builds a client for the LLM service. An empty baseURL falls
// back to LLM_SERVICE_URL, then to the in-cluster default.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("LLM_SERVICE_URL")
	}
	if baseURL == "" {
		baseURL = "http://llm-service:8000"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    ratecontrol.LimiterForProvider(os.Getenv("LLM_PROVIDER")),
		logger:     logger,
	}
}

// GenerateInput is one free-text generation request.
type GenerateInput struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	AgentID      string  `json:"agent_id,omitempty"`
	ModelTier    string  `json:"model_tier,omitempty"`
}

// Usage carries token accounting and cost for one call.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Model        string  `json:"model"`
	Provider     string  `json:"provider"`
	CostUSD      float64 `json:"cost_usd"`
}

// GenerateResult is the gateway's response for a free-text call.
type GenerateResult struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// JSONResult is the gateway's response for a JSON-mode call. Raw is nil
// and ParseError set when the model produced no recoverable JSON; that is
// data, not an error.
type JSONResult struct {
	Raw        json.RawMessage `json:"raw,omitempty"`
	ParseError string          `json:"parse_error,omitempty"`
	Response   *GenerateResult `json:"response"`
}

// Generate performs one LLM call and returns text plus usage accounting.
// Errors are transport-level only (network, HTTP status, body decode).
func (c *Client) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	agentID := in.AgentID
	if agentID == "" {
		agentID = "default"
	}

	ctx, span := tracing.StartSpan(ctx, "llm.generate."+agentID)
	defer span.End()

	maxTokens := in.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	reqBody := map[string]interface{}{
		"query":       in.Prompt,
		"max_tokens":  maxTokens,
		"temperature": in.Temperature,
		"agent_id":    agentID,
		"context": map[string]interface{}{
			"system_prompt": in.SystemPrompt,
		},
	}
	if in.ModelTier != "" {
		reqBody["model_tier"] = in.ModelTier
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/agent/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-ID", agentID)
	tracing.InjectTraceparent(ctx, req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.LLMCalls.WithLabelValues(agentID, "transport_error").Inc()
		return nil, fmt.Errorf("LLM service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.LLMCalls.WithLabelValues(agentID, "http_error").Inc()
		return nil, fmt.Errorf("HTTP %d from LLM service", resp.StatusCode)
	}

	var llmResp struct {
		Success  bool   `json:"success"`
		Response string `json:"response"`
		Metadata struct {
			InputTokens  int     `json:"input_tokens"`
			OutputTokens int     `json:"output_tokens"`
			CostUSD      float64 `json:"cost_usd"`
		} `json:"metadata"`
		TokensUsed int    `json:"tokens_used"`
		ModelUsed  string `json:"model_used"`
		Provider   string `json:"provider"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		metrics.LLMCalls.WithLabelValues(agentID, "decode_error").Inc()
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}

	usage := Usage{
		InputTokens:  llmResp.Metadata.InputTokens,
		OutputTokens: llmResp.Metadata.OutputTokens,
		TotalTokens:  llmResp.TokensUsed,
		Model:        llmResp.ModelUsed,
		Provider:     llmResp.Provider,
		CostUSD:      llmResp.Metadata.CostUSD,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	if usage.CostUSD == 0 {
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			usage.CostUSD = pricing.CostForSplit(usage.Model, usage.InputTokens, usage.OutputTokens)
		} else {
			usage.CostUSD = pricing.CostForTokens(usage.Model, usage.TotalTokens)
		}
	}

	metrics.LLMCalls.WithLabelValues(agentID, "ok").Inc()
	metrics.LLMCallLatency.WithLabelValues(agentID).Observe(time.Since(start).Seconds())
	metrics.LLMTokensUsed.Observe(float64(usage.TotalTokens))
	metrics.LLMCostUSD.Observe(usage.CostUSD)

	c.logger.Debug("LLM call complete",
		zap.String("agent_id", agentID),
		zap.Int("tokens", usage.TotalTokens),
		zap.String("model", usage.Model),
	)

	return &GenerateResult{Text: llmResp.Response, Usage: usage}, nil
}

// GenerateJSON performs one LLM call and applies tolerant JSON extraction
// to the generated text. Malformed model output never yields an error:
// the result carries a nil Raw and a descriptive ParseError instead.
func (c *Client) GenerateJSON(ctx context.Context, in GenerateInput) (*JSONResult, error) {
	resp, err := c.Generate(ctx, in)
	if err != nil {
		return nil, err
	}
	raw, parseErr := ExtractJSON(resp.Text)
	return &JSONResult{Raw: raw, ParseError: parseErr, Response: resp}, nil
}
