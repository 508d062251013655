package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------

// AsyncNetworkManager wraps the HTTP client used against the query endpoint.
// Retries are capped by config; the switch path runs with zero retries so a
// user-triggered switch never turns into a retry storm.
type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Query.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with the configured retry budget.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	return nm.get(ctx, urlStr, params, nm.Config.Query.MaxRetries)
}

// -----------------------------------------------------------------------------

// GetOnce performs a single GET attempt, no retries. User-triggered paths
// must surface a failure immediately instead of burning the retry budget.
func (nm *AsyncNetworkManager) GetOnce(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	return nm.get(ctx, urlStr, params, 0)
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) get(ctx context.Context, urlStr string, params map[string]string, maxRetries int) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	finalUrl := reqUrl.String()

	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Exponential backoff, cut short when the caller gives up
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i*i) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, "GET", finalUrl, nil)
		if err != nil {
			return nil, err
		}
		if nm.Config.Query.UserAgent != "" {
			req.Header.Set("User-Agent", nm.Config.Query.UserAgent)
		}

		resp, err := nm.Client.Do(req)
		if err != nil {
			lastErr = err
			nm.Logger.Info("Request failed (attempt %d/%d): %v", i+1, maxRetries+1, err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			lastErr = fmt.Errorf("bad status: %d", resp.StatusCode)
			nm.Logger.Info("Bad status %d for %s", resp.StatusCode, reqUrl.Path)
			continue
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("request to %s failed: %w", reqUrl.Path, lastErr)
}
