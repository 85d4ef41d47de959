package schedulefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtedge/courtedge/internal/domain/event"
	"github.com/courtedge/courtedge/internal/platform/logging"
	"github.com/courtedge/courtedge/internal/platform/resilience"
	"github.com/courtedge/courtedge/internal/usecase"
)

const defaultBaseURL = "https://api.courtsched.example.com/v1"

var errScheduleTransient = crerr.New("schedule feed transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client serves two roles: it lists the day's slate of events, and it reports
// per-event rest and back-to-back context.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
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

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type slateEnvelope struct {
	Data []event.Event `json:"data"`
}

type scheduleEnvelope struct {
	Data event.SchedulePayload `json:"data"`
}

// ListEvents returns the slate for one UTC date (YYYY-MM-DD).
func (c *Client) ListEvents(ctx context.Context, date string) ([]event.Event, error) {
	if strings.TrimSpace(date) == "" {
		return nil, crerr.New("slate date is required")
	}

	var envelope slateEnvelope
	if err := c.doJSON(ctx, "/slate/"+url.PathEscape(date), &envelope); err != nil {
		return nil, fmt.Errorf("fetch slate date=%s: %w", date, err)
	}
	return envelope.Data, nil
}

// FetchSchedule returns rest-day and back-to-back context for one event.
func (c *Client) FetchSchedule(ctx context.Context, ev event.Event) (event.SchedulePayload, error) {
	if ev.ID == "" {
		return event.SchedulePayload{}, crerr.New("event id is required")
	}

	var envelope scheduleEnvelope
	if err := c.doJSON(ctx, "/events/"+url.PathEscape(ev.ID)+"/schedule", &envelope); err != nil {
		return event.SchedulePayload{}, fmt.Errorf("fetch schedule event_id=%s: %w", ev.ID, err)
	}
	return envelope.Data, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "schedule circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: schedule feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	values.Set("api_key", c.apiKey)
	fullURL := c.baseURL + path + "?" + values.Encode()

	raw, err := c.executeRequest(ctx, fullURL)
	if c.circuitEnabled {
		if err != nil && crerr.Is(err, errScheduleTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode schedule payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errScheduleTransient, c.redact(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errScheduleTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d", errScheduleTransient, resp.StatusCode)
			default:
				return nil, fmt.Errorf("provider status=%d", resp.StatusCode)
			}
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

func (c *Client) redact(value string) string {
	if c.apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, c.apiKey, "REDACTED")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
