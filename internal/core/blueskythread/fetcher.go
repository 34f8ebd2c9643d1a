package blueskythread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"Skythread/internal/core/threads"
)

const (
	// DefaultAPIBaseURL is the public Bluesky appview
	DefaultAPIBaseURL = "https://public.api.bsky.app"

	// DefaultDepth is the deepest reply level the appview will return
	DefaultDepth = 1000

	defaultUserAgent = "Skythread/1.0 (+https://github.com/skythread)"

	// maxDocumentBytes bounds a getPostThread body
	maxDocumentBytes = 32 << 20
	// maxErrorBodyBytes bounds how much of an error body ends up in messages
	maxErrorBodyBytes = 1024
)

// errLimiterWait marks a request that never left the process because the
// upstream rate limiter gave up waiting
var errLimiterWait = errors.New("upstream rate limit wait")

// xrpcError is the body of a failed XRPC call
type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusError is a non-200 appview answer that is neither NotFound nor Blocked
type statusError struct {
	Code       string
	Detail     string
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Detail)
}

// fetcher calls app.bsky.feed.getPostThread
type fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	baseURL   string
	userAgent string
	depth     int
}

// fetchThread returns the raw response body for the thread rooted at atURI
func (f *fetcher) fetchThread(ctx context.Context, atURI string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", errLimiterWait, err)
		}
	}

	query := url.Values{}
	query.Set("uri", atURI)
	query.Set("depth", strconv.Itoa(f.depth))
	query.Set("parentHeight", "0")
	apiURL := f.baseURL + "/xrpc/app.bsky.feed.getPostThread?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, classifyStatus(resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("thread document exceeds %d bytes", maxDocumentBytes)
	}
	return body, nil
}

// classifyStatus maps a non-200 appview response to an error
func classifyStatus(status int, body []byte) error {
	var xe xrpcError
	_ = json.Unmarshal(body, &xe)

	switch {
	case status == http.StatusNotFound, xe.Error == "NotFound":
		return fmt.Errorf("%w: %s", ErrThreadNotFound, describe(xe, body))
	case xe.Error == "BlockedActor", xe.Error == "BlockedByActor":
		return fmt.Errorf("%w: %s", ErrThreadBlocked, describe(xe, body))
	case status == http.StatusBadRequest && xe.Error == "InvalidRequest":
		// the appview rejected the reference itself
		return fmt.Errorf("%w: %w", threads.ErrInvalidReference,
			&statusError{StatusCode: status, Code: xe.Error, Detail: describe(xe, body)})
	default:
		return &statusError{StatusCode: status, Code: xe.Error, Detail: describe(xe, body)}
	}
}

func describe(xe xrpcError, body []byte) string {
	if xe.Message != "" {
		return xe.Message
	}
	if xe.Error != "" {
		return xe.Error
	}
	return string(body)
}

// classifyRoot reports a thread whose root is a blocked or not-found
// placeholder, which the appview returns with a 200 status
func classifyRoot(doc []byte) error {
	var peek struct {
		Thread struct {
			Type string `json:"$type"`
			URI  string `json:"uri"`
		} `json:"thread"`
	}
	if err := json.Unmarshal(doc, &peek); err != nil {
		return nil
	}
	switch peek.Thread.Type {
	case threads.TypeBlockedPost:
		return fmt.Errorf("%w: %s", ErrThreadBlocked, peek.Thread.URI)
	case threads.TypeNotFoundPost:
		return fmt.Errorf("%w: %s", ErrThreadNotFound, peek.Thread.URI)
	}
	return nil
}

// outcome is how a load attempt counts against the circuit breaker
type outcome int

const (
	// outcomeIgnored leaves the breaker untouched
	outcomeIgnored outcome = iota
	// outcomeAnswered is a definitive answer from a healthy appview
	outcomeAnswered
	// outcomeFailed counts towards opening the circuit
	outcomeFailed
)

// classifyOutcome decides how err counts against the circuit breaker. Only
// transport errors, 5xx, 429 and malformed documents are failures; other 4xx
// answers are caused by the caller and must not open the circuit for
// everyone else.
func classifyOutcome(err error) outcome {
	if err == nil {
		return outcomeAnswered
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, errLimiterWait) {
		return outcomeIgnored
	}
	if errors.Is(err, threads.ErrMalformedThread) {
		return outcomeFailed
	}
	if errors.Is(err, ErrThreadNotFound) || errors.Is(err, ErrThreadBlocked) {
		return outcomeAnswered
	}

	var se *statusError
	if errors.As(err, &se) {
		if se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests {
			return outcomeFailed
		}
		return outcomeAnswered
	}
	return outcomeFailed
}
