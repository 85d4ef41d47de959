package oddsfeed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/resilience"
	"github.com/courtedge/courtedge/internal/usecase"
)

const defaultBaseURL = "https://api.sharplines.example.com/v1"

var errOddsTransient = crerr.New("odds feed transient failure")

type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client pulls line movement and public betting splits. The odds feed is the
// chattiest of the three sources, so it runs over fasthttp with pooled
// request buffers.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	apiKey         string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		timeout:        timeout,
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type oddsEnvelope struct {
	Data event.OddsPayload `json:"data"`
}

// FetchOdds returns current and opening lines plus public betting splits for
// one event.
func (c *Client) FetchOdds(ctx context.Context, ev event.Event) (event.OddsPayload, error) {
	if ev.ID == "" {
		return event.OddsPayload{}, crerr.New("event id is required")
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "odds circuit breaker rejected request", "state", c.breaker.State())
			return event.OddsPayload{}, fmt.Errorf("%w: odds feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.buildURL(ev.ID)
	raw, err := c.executeRequest(ctx, fullURL)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errOddsTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return event.OddsPayload{}, fmt.Errorf("fetch odds event_id=%s: %w", ev.ID, err)
	}

	var envelope oddsEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return event.OddsPayload{}, fmt.Errorf("decode odds payload: %w", err)
	}
	return envelope.Data, nil
}

func (c *Client) buildURL(eventID string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString("/odds/")
	_, _ = buf.WriteString(url.PathEscape(eventID))
	_, _ = buf.WriteString("?api_key=")
	_, _ = buf.WriteString(url.QueryEscape(c.apiKey))
	return buf.String()
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, status, err := c.dispatch(fullURL)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("%w: send request: %s", errOddsTransient, c.redact(err.Error()))
		case status >= 200 && status < 300:
			return raw, nil
		case status == fasthttp.StatusTooManyRequests || status >= fasthttp.StatusInternalServerError:
			lastErr = fmt.Errorf("%w: provider status=%d", errOddsTransient, status)
		default:
			return nil, fmt.Errorf("provider status=%d", status)
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	return nil, lastErr
}

func (c *Client) dispatch(fullURL string) ([]byte, int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("accept", "application/json")

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, 0, err
	}

	// The response buffer is reused after release; copy out the body.
	raw := append([]byte(nil), resp.Body()...)
	return raw, resp.StatusCode(), nil
}

func (c *Client) redact(value string) string {
	if c.apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, c.apiKey, "REDACTED")
}
