package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OK                     int = 200
	CREATED                int = 201
	NO_CONTENT             int = 204
	BAD_REQUEST            int = 400
	UNAUTHORIZED           int = 401
	FORBIDDEN              int = 403
	DATA_NOT_FOUND         int = 404
	METHOD_NOT_ALLOWED     int = 405
	UNSUPPORTED_MEDIA_TYPE int = 415
	RATE_LIMIT_EXCEEDED    int = 429
	INTERNAL_SERVER_ERROR  int = 500
	BAD_GATEWAY            int = 502
	SERVICE_UNAVAILABLE    int = 503
	GATEWAY_TIMEOUT        int = 504
)

var messages = map[int]string{
	OK:                     "OK",
	CREATED:                "Created",
	NO_CONTENT:             "No content",
	BAD_REQUEST:            "Bad request",
	UNAUTHORIZED:           "Unauthorized",
	FORBIDDEN:              "Forbidden",
	DATA_NOT_FOUND:         "Data not found",
	METHOD_NOT_ALLOWED:     "Method not allowed",
	UNSUPPORTED_MEDIA_TYPE: "Unsupported media type",
	RATE_LIMIT_EXCEEDED:    "Rate limit exceeded",
	INTERNAL_SERVER_ERROR:  "Internal server error",
	BAD_GATEWAY:            "Bad gateway",
	SERVICE_UNAVAILABLE:    "Service unavailable",
	GATEWAY_TIMEOUT:        "Gateway timeout",
}

// ErrRateLimited is returned when the rate limiter does not let a request out
var ErrRateLimited = errors.New("request rejected by rate limiter")

// Backoff applied to every request after the server answers 429
const rateLimitBackoff = time.Second

type Proxy struct {
	header      map[string]string
	client      *http.Client
	rateLimiter *RateLimiter
}

func NewProxy(header map[string]string, timeout time.Duration, restrictions []Restriction) *Proxy {
	return &Proxy{header, &http.Client{Timeout: timeout}, NewRateLimiter(restrictions, rateLimitBackoff)}
}

// Make a request to the provided url, indicating if it is vital.
// The request will be performed depending on the status of the rate limiter.
// Any answer from the server is returned with its status code; only
// transport failures produce an error
func (proxy *Proxy) Request(ctx context.Context, method string, url string, body []byte, vital bool) (int, []byte, error) {

	// ask for permission to execute the request
	// and wait if necessary
	if !proxy.rateLimiter.Allowed(ctx, vital) {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		return 0, nil, ErrRateLimited
	}

	// Create the request and add the header
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request for url %s: %w", url, err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	// Perform the request
	res, err := proxy.client.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("perform request: %w", err)
	}
	defer res.Body.Close()

	// Log the status if it is understood
	if message, ok := messages[res.StatusCode]; ok {
		log.Debug().Str("method", method).Str("url", url).Msg(fmt.Sprintf("%d %s", res.StatusCode, message))
	} else {
		log.Warn().Str("url", url).Msg(fmt.Sprintf("Status code of request (%d) is not understood", res.StatusCode))
	}

	if res.StatusCode == RATE_LIMIT_EXCEEDED {
		proxy.rateLimiter.ReceivedRateLimit()
	}

	// Read the response
	stream, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response for url %s: %w", url, err)
	}
	return res.StatusCode, stream, nil
}
