package provider

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// breakerClient wraps an http.Client with a circuit breaker so a misbehaving
// upstream trips fast instead of tying up request handlers until timeout.
type breakerClient struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

func newBreakerClient(name string, timeout time.Duration) *breakerClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &breakerClient{
		client: &http.Client{Timeout: timeout},
		cb:     cb,
	}
}

func (b *breakerClient) Do(req *http.Request) (*http.Response, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}
