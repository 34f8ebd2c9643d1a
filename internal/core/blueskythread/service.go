// Package blueskythread retrieves Bluesky post threads from an appview and
// caches the raw documents.
package blueskythread

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"golang.org/x/time/rate"

	"Skythread/internal/atproto/identity"
	"Skythread/internal/core/threads"
)

// Cache TTL constants for age-based decay
const (
	// TTL for threads whose root is less than 24 hours old (replies still arriving)
	ttlFreshThread = 15 * time.Minute
	// TTL for threads 1-7 days old
	ttlRecentThread = 1 * time.Hour
	// TTL for threads older than 7 days
	ttlOldThread = 24 * time.Hour
	// TTL when the root post has no usable timestamp
	ttlUnknownAge = 15 * time.Minute
)

// service implements the Service interface
type service struct {
	repo             Repository
	identityResolver identity.Resolver
	circuitBreaker   *circuitBreaker
	fetcher          *fetcher
	logger           *slog.Logger
	now              func() time.Time
	onLoad           func(atURI string)
	endpoint         string
	maxCacheTTL      time.Duration
	labelFilter      bool
}

// ServiceOption configures the service
type ServiceOption func(*service)

// WithAPIBaseURL sets the appview queried for threads
func WithAPIBaseURL(base string) ServiceOption {
	return func(s *service) {
		if base != "" {
			s.fetcher.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for appview requests
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(s *service) {
		if client != nil {
			s.fetcher.client = client
		}
	}
}

// WithTimeout sets the HTTP timeout for appview requests. A client passed to
// WithHTTPClient is copied rather than modified.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *service) {
		client := *s.fetcher.client
		client.Timeout = timeout
		s.fetcher.client = &client
	}
}

// WithDepth sets how many reply levels are requested
func WithDepth(depth int) ServiceOption {
	return func(s *service) {
		if depth > 0 {
			s.fetcher.depth = depth
		}
	}
}

// WithUserAgent sets the User-Agent sent to the appview
func WithUserAgent(ua string) ServiceOption {
	return func(s *service) {
		if ua != "" {
			s.fetcher.userAgent = ua
		}
	}
}

// WithUpstreamRateLimit bounds requests to the appview. rps <= 0 disables the limit.
func WithUpstreamRateLimit(rps float64, burst int) ServiceOption {
	return func(s *service) {
		if rps <= 0 {
			s.fetcher.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.fetcher.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCacheTTL caps how long any document is cached
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *service) {
		if ttl > 0 {
			s.maxCacheTTL = ttl
		}
	}
}

// WithLabelFilter drops replies carrying labels applied by someone other than
// their author
func WithLabelFilter(enabled bool) ServiceOption {
	return func(s *service) {
		s.labelFilter = enabled
	}
}

// WithLogger sets the structured logger passed to the flattener
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLoadHook registers fn to be called with the root URI of every
// successfully loaded thread
func WithLoadHook(fn func(atURI string)) ServiceOption {
	return func(s *service) {
		s.onLoad = fn
	}
}

// NewService creates a new thread service
func NewService(repo Repository, identityResolver identity.Resolver, opts ...ServiceOption) Service {
	if repo == nil {
		panic("blueskythread: repo cannot be nil")
	}
	if identityResolver == nil {
		panic("blueskythread: identityResolver cannot be nil")
	}

	s := &service{
		repo:             repo,
		identityResolver: identityResolver,
		circuitBreaker:   newCircuitBreaker(),
		logger:           slog.Default(),
		now:              time.Now,
		maxCacheTTL:      ttlOldThread,
		fetcher: &fetcher{
			client:    &http.Client{Timeout: 10 * time.Second},
			baseURL:   DefaultAPIBaseURL,
			userAgent: defaultUserAgent,
			depth:     DefaultDepth,
			limiter:   rate.NewLimiter(rate.Limit(10), 20),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	s.endpoint = s.fetcher.baseURL
	if u, err := url.Parse(s.fetcher.baseURL); err == nil && u.Host != "" {
		s.endpoint = u.Host
	}

	return s
}

// CalculateCacheTTL determines how long a thread document stays cached from
// the age of its root post, capped at maxTTL. Young threads still collect
// replies and are refreshed sooner.
func CalculateCacheTTL(root *threads.PostView, now time.Time, maxTTL time.Duration) time.Duration {
	ttl := ttlUnknownAge
	if root != nil {
		if createdAt, ok := root.CreatedTime(); ok {
			switch age := now.Sub(createdAt); {
			case age < 24*time.Hour:
				ttl = ttlFreshThread
			case age < 7*24*time.Hour:
				ttl = ttlRecentThread
			default:
				ttl = ttlOldThread
			}
		}
	}

	if maxTTL > 0 && ttl > maxTTL {
		return maxTTL
	}
	return ttl
}

// IsBlueskyURL checks if a URL is a valid bsky.app post URL
func (s *service) IsBlueskyURL(url string) bool {
	return IsBlueskyURL(url)
}

// ParseBlueskyURL converts a bsky.app URL to an AT-URI
func (s *service) ParseBlueskyURL(ctx context.Context, url string) (string, error) {
	return ParseBlueskyURL(ctx, url, s.identityResolver)
}

// Invalidate drops the cached document for atURI
func (s *service) Invalidate(ctx context.Context, atURI string) error {
	if err := s.repo.Delete(ctx, atURI); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", atURI, err)
	}
	log.Printf("[THREAD] Invalidated cache for %s", atURI)
	return nil
}

// LoadThread fetches and flattens the thread rooted at ref.
// The reference is validated before any cache or network access.
func (s *service) LoadThread(ctx context.Context, ref string) (*threads.Thread, error) {
	ref = strings.TrimSpace(ref)
	if IsBlueskyURL(ref) {
		atURI, err := s.ParseBlueskyURL(ctx, ref)
		if err != nil {
			return nil, err
		}
		ref = atURI
	}

	uri, err := threads.ValidateReference(ref)
	if err != nil {
		return nil, err
	}
	atURI, err := s.canonicalURI(ctx, uri)
	if err != nil {
		return nil, err
	}

	// 1. Check cache first
	cached, err := s.repo.Get(ctx, atURI)
	switch {
	case err == nil && cached != nil:
		root, decodeErr := threads.DecodeThreadResponse(cached.Document)
		if decodeErr == nil {
			log.Printf("[THREAD] Cache hit for %s", atURI)
			s.loaded(atURI)
			return threads.NewThread(atURI, root, cached.FetchedAt, s.flattenOptions()...), nil
		}
		log.Printf("[THREAD] Warning: Dropping undecodable cache entry for %s: %v", atURI, decodeErr)
		_ = s.repo.Delete(ctx, atURI)
	case err != nil && !errors.Is(err, ErrCacheMiss):
		log.Printf("[THREAD] Warning: Cache read error for %s: %v", atURI, err)
	}

	// 2. Check circuit breaker
	if ok, cbErr := s.circuitBreaker.canAttempt(s.endpoint); !ok {
		log.Printf("[THREAD] Skipping %s due to circuit breaker: %v", atURI, cbErr)
		return nil, cbErr
	}

	// 3. Fetch from the appview
	log.Printf("[THREAD] Cache miss for %s, fetching from %s...", atURI, s.endpoint)
	doc, err := s.fetcher.fetchThread(ctx, atURI)
	if err != nil {
		s.recordOutcome(err)
		return nil, fmt.Errorf("failed to fetch thread: %w", err)
	}

	// 4. Decode
	if rootErr := classifyRoot(doc); rootErr != nil {
		s.recordOutcome(rootErr)
		return nil, rootErr
	}
	root, err := threads.DecodeThreadResponse(doc)
	s.recordOutcome(err)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now().UTC()
	thread := threads.NewThread(atURI, root, fetchedAt, s.flattenOptions()...)

	// 5. Cache the raw document with an age-based TTL
	cacheTTL := CalculateCacheTTL(root.Post, fetchedAt, s.maxCacheTTL)
	entry := &CachedThread{Document: doc, FetchedAt: fetchedAt}
	if cacheErr := s.repo.Set(ctx, atURI, entry, cacheTTL); cacheErr != nil {
		log.Printf("[THREAD] Warning: Failed to cache thread %s: %v", atURI, cacheErr)
	}

	log.Printf("[THREAD] Loaded %s (%d entries, cacheTTL: %v)", atURI, len(thread.Comments), cacheTTL)
	s.loaded(atURI)
	return thread, nil
}

// canonicalURI returns the cache and subscription key for uri. Handle
// authorities are resolved to a DID so that every spelling of a post shares
// one key with the firehose, and only app.bsky.feed.post records are accepted.
func (s *service) canonicalURI(ctx context.Context, uri syntax.ATURI) (string, error) {
	if err := validateATURI(uri.String()); err != nil {
		return "", err
	}

	authority := uri.Authority()
	if !authority.IsHandle() {
		return uri.String(), nil
	}
	handle, err := authority.AsHandle()
	if err != nil {
		return "", fmt.Errorf("%w: %v", threads.ErrInvalidReference, err)
	}
	did, _, err := s.identityResolver.ResolveHandle(ctx, handle.Normalize().String())
	if err != nil {
		return "", fmt.Errorf("failed to resolve handle %s: %w", handle, err)
	}
	if _, err := syntax.ParseDID(did); err != nil {
		return "", fmt.Errorf("handle %s resolved to invalid DID %q: %w", handle, did, err)
	}
	return fmt.Sprintf("at://%s/%s/%s", did, uri.Collection(), uri.RecordKey()), nil
}

// recordOutcome feeds the result of an appview round trip to the circuit breaker
func (s *service) recordOutcome(err error) {
	switch classifyOutcome(err) {
	case outcomeFailed:
		s.circuitBreaker.recordFailure(s.endpoint, err)
	case outcomeAnswered:
		s.circuitBreaker.recordSuccess(s.endpoint)
	}
}

func (s *service) loaded(atURI string) {
	if s.onLoad != nil {
		s.onLoad(atURI)
	}
}

func (s *service) flattenOptions() []threads.FlattenOption {
	return []threads.FlattenOption{
		threads.WithLabelFilter(s.labelFilter),
		threads.WithFlattenLogger(s.logger),
	}
}
