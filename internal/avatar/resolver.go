// Package avatar resolves a profile image for a display handle. Resolution
// is best-effort: any failure falls back to the default image so a placement
// never aborts because the avatar service is down.
package avatar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/soltrees/api/internal/circuitbreaker"
	"github.com/soltrees/api/internal/logging"
)

// Resolver maps a handle to a profile image URL.
type Resolver interface {
	Resolve(ctx context.Context, handle string) string
}

// HTTPResolver probes the avatar service with a HEAD request and falls back
// to the default image when the handle has no avatar there.
type HTTPResolver struct {
	baseURL      string
	defaultImage string
	client       *http.Client
	breaker      *circuitbreaker.CircuitBreaker
	logger       *logging.Logger
}

// Config configures an HTTPResolver.
type Config struct {
	BaseURL      string
	DefaultImage string
	Timeout      time.Duration
}

// NewHTTPResolver creates a resolver for the avatar service.
func NewHTTPResolver(cfg *Config, logger *logging.Logger) *HTTPResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPResolver{
		baseURL:      cfg.BaseURL,
		defaultImage: cfg.DefaultImage,
		client:       &http.Client{Timeout: timeout},
		breaker:      circuitbreaker.New(circuitbreaker.DefaultConfig("avatar"), logger),
		logger:       logger,
	}
}

// Resolve returns the avatar URL for the handle, or the default image if the
// avatar service is unreachable, times out, or has no image for the handle.
func (r *HTTPResolver) Resolve(ctx context.Context, handle string) string {
	avatarURL := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(handle))

	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, avatarURL, nil)
		if err != nil {
			return err
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("avatar service returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		r.logger.WithError(err).WithField("handle", handle).Debug("Avatar lookup failed, using default image")
		return r.defaultImage
	}

	return avatarURL
}
