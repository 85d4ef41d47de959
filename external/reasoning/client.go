package reasoning

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/courtedge/courtedge/internal/platform/cache"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/metrics"
	"github.com/courtedge/courtedge/internal/platform/ratelimit"
)

const (
	defaultBaseURL         = "https://api.reasoning.example.com/v1"
	defaultModel           = "reasoner-large"
	defaultTemperature     = 0.3
	defaultMaxOutputTokens = 1024
	defaultCooldown        = 30 * time.Second
	fingerprintPrefixLen   = 512
	maxResponseBytes       = 2 << 20
)

var errReasoningTransient = crerr.New("reasoning transient failure")

var validate = validator.New(validator.WithRequiredStructEnabled())

type ClientConfig struct {
	HTTPClient      *http.Client
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxRetries      int
	Temperature     float64
	MaxOutputTokens int
	Window          time.Duration
	WindowLimit     int
	CooldownMargin  time.Duration
	CacheTTL        time.Duration
	CacheMaxEntries int
	Logger          *logging.Logger
}

// Client talks to the hosted reasoning service. Every public method degrades
// instead of failing: callers get (zero value, false) when the service cannot
// answer, and the pipeline continues without model output.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	model           string
	maxRetries      int
	temperature     float64
	maxOutputTokens int
	cooldownMargin  time.Duration
	limiter         *ratelimit.Window
	cache           *cache.Store
	logger          *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	cooldownMargin := cfg.CooldownMargin
	if cooldownMargin < 0 {
		cooldownMargin = 0
	}

	return &Client{
		httpClient:      httpClient,
		baseURL:         baseURL,
		apiKey:          strings.TrimSpace(cfg.APIKey),
		model:           model,
		maxRetries:      max(cfg.MaxRetries, 0),
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		cooldownMargin:  cooldownMargin,
		limiter:         ratelimit.NewWindow(cfg.Window, cfg.WindowLimit),
		cache:           cache.NewStore(cfg.CacheTTL, cfg.CacheMaxEntries),
		logger:          logger,
	}
}

// CooldownRemaining exposes the limiter's remaining cooldown for health
// reporting.
func (c *Client) CooldownRemaining() time.Duration {
	return c.limiter.CooldownRemaining()
}

type generateRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type rateLimitDetail struct {
	RetryDelay string `json:"retry_delay"`
	Error      struct {
		RetryDelay string `json:"retry_delay"`
	} `json:"error"`
}

// Generate sends one prompt and returns the model's free-text answer.
// Identical prompts within the cache TTL are answered from cache without
// touching the quota. ok is false when every attempt failed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, bool) {
	key := promptFingerprint(prompt)
	if cached, hit := c.cache.Get(ctx, key); hit {
		if text, isText := cached.(string); isText {
			metrics.ReasoningCacheHitsTotal.Inc()
			metrics.ReasoningRequestsTotal.WithLabelValues("cache_hit").Inc()
			return text, true
		}
	}

	text, err := c.executeGenerate(ctx, prompt)
	if err != nil {
		metrics.ReasoningRequestsTotal.WithLabelValues("failure").Inc()
		c.logger.WarnContext(ctx, "reasoning request degraded", "error", c.redact(err.Error()))
		return "", false
	}

	c.cache.Set(ctx, key, text)
	metrics.ReasoningRequestsTotal.WithLabelValues("success").Inc()
	return text, true
}

// GenerateStructured sends the prompt, extracts the first JSON object from
// the free-text answer, and decodes it into target. Struct targets with
// validate tags are checked before being handed back.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, target any) bool {
	text, ok := c.Generate(ctx, prompt)
	if !ok {
		return false
	}

	raw, found := ExtractJSON(text)
	if !found {
		c.logger.WarnContext(ctx, "reasoning response carried no json object")
		return false
	}
	if err := sonic.Unmarshal([]byte(raw), target); err != nil {
		c.logger.WarnContext(ctx, "decode reasoning response", "error", err)
		return false
	}
	if err := validate.Struct(target); err != nil {
		var invalid *validator.InvalidValidationError
		if crerr.As(err, &invalid) {
			// Non-struct target; nothing to validate.
			return true
		}
		c.logger.WarnContext(ctx, "reasoning response failed validation", "error", err)
		return false
	}
	return true
}

func (c *Client) executeGenerate(ctx context.Context, prompt string) (string, error) {
	body, err := sonic.Marshal(generateRequest{
		Model:           c.model,
		Prompt:          prompt,
		Temperature:     c.temperature,
		MaxOutputTokens: c.maxOutputTokens,
	})
	if err != nil {
		return "", crerr.Wrap(err, "encode request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return "", err
		}

		text, retryable, err := c.dispatch(ctx, body)
		if err == nil {
			metrics.ReasoningCooldownSeconds.Set(c.limiter.CooldownRemaining().Seconds())
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
		metrics.ReasoningCooldownSeconds.Set(c.limiter.CooldownRemaining().Seconds())
	}

	if lastErr == nil {
		lastErr = crerr.New("reasoning request failed")
	}
	return "", lastErr
}

func (c *Client) dispatch(ctx context.Context, body []byte) (text string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", false, crerr.Wrap(err, "build request")
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, crerr.Wrapf(errReasoningTransient, "send request: %s", c.redact(err.Error()))
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if readErr != nil {
		return "", true, crerr.Wrapf(errReasoningTransient, "read response body: %v", readErr)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var decoded generateResponse
		if err := sonic.Unmarshal(raw, &decoded); err != nil {
			return "", false, crerr.Wrap(err, "decode response")
		}
		if strings.TrimSpace(decoded.Text) == "" {
			return "", false, crerr.New("empty model output")
		}
		return decoded.Text, false, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		delay := parseRetryDelay(resp.Header.Get("Retry-After"), raw)
		c.limiter.Cooldown(delay + c.cooldownMargin)
		metrics.ReasoningRequestsTotal.WithLabelValues("rate_limited").Inc()
		c.logger.WarnContext(ctx, "reasoning provider rate limited",
			"retry_delay", delay.String(), "cooldown", (delay + c.cooldownMargin).String())
		return "", true, crerr.Wrapf(errReasoningTransient, "provider status=429 retry_delay=%s", delay)

	case resp.StatusCode >= http.StatusInternalServerError:
		return "", true, crerr.Wrapf(errReasoningTransient, "provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))

	default:
		return "", false, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
}

// parseRetryDelay reads the provider's requested delay from the Retry-After
// header or a retry_delay field in the error body. Falls back to 30s when
// neither parses.
func parseRetryDelay(retryAfter string, body []byte) time.Duration {
	if retryAfter = strings.TrimSpace(retryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	var detail rateLimitDetail
	if err := sonic.Unmarshal(body, &detail); err == nil {
		for _, candidate := range []string{detail.RetryDelay, detail.Error.RetryDelay} {
			if d := parseDelayValue(candidate); d > 0 {
				return d
			}
		}
	}
	return defaultCooldown
}

func parseDelayValue(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	return 0
}

// promptFingerprint hashes a fixed-length prefix of the prompt so that cache
// keys stay bounded no matter how large the prompt grows.
func promptFingerprint(prompt string) string {
	prefix := prompt
	if len(prefix) > fingerprintPrefixLen {
		prefix = prefix[:fingerprintPrefixLen]
	}
	sum := sha256.Sum256([]byte(prefix))
	return hex.EncodeToString(sum[:])
}

func (c *Client) redact(value string) string {
	if c.apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, c.apiKey, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
