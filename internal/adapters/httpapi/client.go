// Package httpapi talks to the HTTP collaborators: the bid relay, the GraphQL
// condition catalog and the geofence endpoint.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Rate limits conservadores; el relay es el único camino crítico.
	relayRatePerSec    = 20
	catalogRatePerSec  = 10
	geofenceRatePerSec = 1

	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
)

// StatusError is a non-retryable 4xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Body)
}

// Config holds the collaborator endpoints. Empty URLs disable the matching adapter.
type Config struct {
	RelayBase   string
	CatalogURL  string
	GeofenceURL string
	Timeout     time.Duration
}

// Client es el HTTP client compartido con rate limiting y retries.
type Client struct {
	http            *http.Client
	cfg             Config
	relayLimiter    *rate.Limiter
	catalogLimiter  *rate.Limiter
	geofenceLimiter *rate.Limiter
}

// NewClient crea un Client con los endpoints dados.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		http:            &http.Client{Timeout: cfg.Timeout},
		cfg:             cfg,
		relayLimiter:    rate.NewLimiter(relayRatePerSec, 5),
		catalogLimiter:  rate.NewLimiter(catalogRatePerSec, 5),
		geofenceLimiter: rate.NewLimiter(geofenceRatePerSec, 1),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, maxRetries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON. retries=0 para peticiones no idempotentes.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, retries int, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, limiter, retries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; 4xx devuelve *StatusError sin reintentar.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, retries int, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == retries {
				return fmt.Errorf("request failed after %d retries: %w", retries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == retries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, retries)
			}
			slog.Warn("httpapi: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
