package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/jonboulle/clockwork"
)

// DefaultBaseURL is the public classification service
const DefaultBaseURL = "https://isitashopifystore.com"

// StatusClient implements service.StatusChecker
type StatusClient struct {
	client          *http.Client
	baseURL         string
	maxResponseSize int64
	userAgent       string
	retry           RetryPolicy
	clock           clockwork.Clock
}

// Config holds status client configuration
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxResponseSize int64
	UserAgent       string
	Retry           RetryPolicy
	Clock           clockwork.Clock
	// Transport overrides the default HTTP transport
	Transport http.RoundTripper
}

var _ service.StatusChecker = (*StatusClient)(nil)

// NewStatusClient creates a new status client
func NewStatusClient(config Config) *StatusClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = 1 << 20
	}
	if config.Retry.Validate() != nil {
		config.Retry = DefaultRetryPolicy()
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return &StatusClient{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		},
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		maxResponseSize: config.MaxResponseSize,
		userAgent:       config.UserAgent,
		retry:           config.Retry,
		clock:           config.Clock,
	}
}

// Check asks the service about domain and polls while the answer is
// in_progress, at most retry.MaxAttempts requests. A transport or decode
// failure on any attempt ends the check with an error result. When the
// budget runs out the last in_progress result is returned.
func (c *StatusClient) Check(ctx context.Context, domain entity.Domain) entity.CheckOutcome {
	schedule := c.retry.schedule()
	var outcome entity.CheckOutcome

	for {
		outcome.Attempts++
		result, err := c.fetchOnce(ctx, domain)
		if err != nil {
			outcome.Result = entity.ErrorResult()
			outcome.Err = err
			return outcome
		}
		outcome.Result = result

		if result.IsFinal() {
			return outcome
		}

		wait, stop := schedule.Next()
		if stop {
			return outcome
		}

		select {
		case <-ctx.Done():
			outcome.Err = ctx.Err()
			return outcome
		case <-c.clock.After(wait):
		}
	}
}

// fetchOnce issues a single status request
func (c *StatusClient) fetchOnce(ctx context.Context, domain entity.Domain) (entity.ClassificationResult, error) {
	endpoint := fmt.Sprintf("%s/status/%s", c.baseURL, url.PathEscape(domain.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.ClassificationResult{}, &entity.TransportError{Domain: domain, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.ClassificationResult{}, &entity.TransportError{Domain: domain, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxResponseSize))
		return entity.ClassificationResult{}, &entity.TransportError{Domain: domain, StatusCode: resp.StatusCode}
	}

	// Limit response size
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return entity.ClassificationResult{}, &entity.TransportError{Domain: domain, Err: err}
	}
	if int64(len(body)) > c.maxResponseSize {
		return entity.ClassificationResult{}, &entity.DecodeError{
			Domain: domain,
			Err:    fmt.Errorf("response exceeds %d bytes", c.maxResponseSize),
		}
	}

	result, err := decodeStatus(body)
	if err != nil {
		return entity.ClassificationResult{}, &entity.DecodeError{Domain: domain, Err: err}
	}
	return result, nil
}
