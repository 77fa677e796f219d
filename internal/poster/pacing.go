package poster

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// NewLimiter returns a limiter allowing perMinute requests per minute, with
// bursts of up to perMinute. A non-positive rate disables pacing.
func NewLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// NewHTTPClient returns a client that waits on limiter before every request.
// A nil limiter sends requests unpaced.
func NewHTTPClient(timeout time.Duration, limiter *rate.Limiter) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport
	if limiter != nil {
		transport = &pacedTransport{base: transport, limiter: limiter}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type pacedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (p *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := p.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return p.base.RoundTrip(req)
}
