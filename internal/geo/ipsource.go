package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultIPLookupURL answers with {"status":"success","lat":..,"lon":..}
const DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

var (
	errLookupFailed = errors.New("ip geolocation lookup failed")
	errServerError  = errors.New("server error")
	errRateLimited  = errors.New("rate limited")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
)

// BackoffConfig controls exponential backoff between lookup attempts
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// IPSource resolves the observer location from the public IP address
type IPSource struct {
	url     string
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewIPSource creates an IP geolocation source. An empty url uses DefaultIPLookupURL.
func NewIPSource(url string, client *http.Client, logger *zap.Logger) *IPSource {
	if url == "" {
		url = DefaultIPLookupURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ip-geolocation",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Minute,
	})

	return &IPSource{
		url:    url,
		client: client,
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: cb,
		logger:  logger.Named("geo"),
	}
}

// WithBackoff replaces the retry policy
func (s *IPSource) WithBackoff(cfg BackoffConfig) *IPSource {
	s.backoff = cfg
	return s
}

type ipLookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Locate performs the lookup. Transport failures, rate limiting and 5xx
// responses are retried with backoff; any other failure returns immediately.
func (s *IPSource) Locate(ctx context.Context) (Coordinate, error) {
	var attempt int

	for {
		if err := ctx.Err(); err != nil {
			return Coordinate{}, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return Coordinate{}, fmt.Errorf("failed to build request: %w", err)
		}

		// Only transient failures trip the breaker; 4xx and bad payloads
		// are judged after it.
		result, err := s.circuit.Execute(func() (interface{}, error) {
			resp, doErr := s.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return Coordinate{}, fmt.Errorf("unexpected result type from circuit breaker")
			}
			coord, err := decodeLookup(resp)
			if err != nil {
				return Coordinate{}, err
			}
			s.logger.Info("Location resolved from IP",
				zap.Float64("latitude", coord.Latitude),
				zap.Float64("longitude", coord.Longitude))
			return coord, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Coordinate{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Coordinate{}, ctxErr
		}

		if attempt >= s.backoff.MaxRetries {
			return Coordinate{}, err
		}

		delay := s.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if s.backoff.MaxInterval > 0 && delay > s.backoff.MaxInterval {
			delay = s.backoff.MaxInterval
		}

		s.logger.Debug("Retrying location lookup",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Coordinate{}, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func decodeLookup(resp *http.Response) (Coordinate, error) {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Coordinate{}, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
	}

	var payload ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Coordinate{}, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	if payload.Status != "" && payload.Status != "success" {
		return Coordinate{}, fmt.Errorf("%w: %s", errLookupFailed, payload.Message)
	}
	if payload.Lat == nil || payload.Lon == nil {
		return Coordinate{}, fmt.Errorf("%w: response missing lat/lon", errLookupFailed)
	}

	coord := Coordinate{Latitude: *payload.Lat, Longitude: *payload.Lon}
	if err := coord.Validate(); err != nil {
		return Coordinate{}, fmt.Errorf("%w: %v", errLookupFailed, err)
	}
	return coord, nil
}
