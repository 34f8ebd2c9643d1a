package blueskythread

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Endpoint is failing, calls are skipped
	stateHalfOpen                     // One trial call is allowed
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "OPEN (failing)"
	case stateHalfOpen:
		return "HALF-OPEN (testing)"
	default:
		return "CLOSED (recovered)"
	}
}

// endpointCircuit is the breaker state of one appview endpoint
type endpointCircuit struct {
	lastFailure time.Time
	lastLog     time.Time
	failures    int
	state       circuitState
}

// circuitBreaker stops calling an appview endpoint after consecutive failures
type circuitBreaker struct {
	now              func() time.Time
	endpoints        map[string]*endpointCircuit
	failureThreshold int
	openDuration     time.Duration
	mu               sync.Mutex
}

// newCircuitBreaker creates a circuit breaker that opens after 3 consecutive
// failures and stays open for 5 minutes
func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		now:              time.Now,
		endpoints:        make(map[string]*endpointCircuit),
		failureThreshold: 3,
		openDuration:     5 * time.Minute,
	}
}

// endpoint returns the state for key (must be called with lock held)
func (cb *circuitBreaker) endpoint(key string) *endpointCircuit {
	ep, ok := cb.endpoints[key]
	if !ok {
		ep = &endpointCircuit{}
		cb.endpoints[key] = ep
	}
	return ep
}

// canAttempt reports whether a call to endpoint may proceed. An open circuit
// whose open period has elapsed moves to half-open and lets the call through.
func (cb *circuitBreaker) canAttempt(endpoint string) (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ep := cb.endpoint(endpoint)
	if ep.state != stateOpen {
		return true, nil
	}

	nextRetry := ep.lastFailure.Add(cb.openDuration)
	if cb.now().After(nextRetry) {
		cb.transition(endpoint, ep, stateHalfOpen)
		return true, nil
	}

	return false, fmt.Errorf(
		"%w for %s (failures: %d, next retry: %s)",
		ErrCircuitOpen,
		endpoint,
		ep.failures,
		nextRetry.Format("15:04:05"),
	)
}

// recordSuccess closes the circuit and forgets past failures
func (cb *circuitBreaker) recordSuccess(endpoint string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ep := cb.endpoint(endpoint)
	ep.failures = 0
	ep.lastFailure = time.Time{}
	if ep.state != stateClosed {
		cb.transition(endpoint, ep, stateClosed)
	}
}

// recordFailure counts a failed call. A failed half-open trial reopens the
// circuit immediately.
func (cb *circuitBreaker) recordFailure(endpoint string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ep := cb.endpoint(endpoint)
	ep.failures++
	ep.lastFailure = cb.now()

	if ep.state == stateHalfOpen || ep.failures >= cb.failureThreshold {
		if ep.state != stateOpen {
			log.Printf("[THREAD-CIRCUIT] Opening circuit for %s after %d consecutive failures. Last error: %v",
				endpoint, ep.failures, err)
			ep.state = stateOpen
			ep.lastLog = cb.now()
		}
		return
	}

	log.Printf("[THREAD-CIRCUIT] Failure %d/%d for %s: %v", ep.failures, cb.failureThreshold, endpoint, err)
}

// state returns the current state of endpoint
func (cb *circuitBreaker) state(endpoint string) circuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.endpoint(endpoint).state
}

// transition changes state, logging at most once a minute per endpoint
// (must be called with lock held)
func (cb *circuitBreaker) transition(endpoint string, ep *endpointCircuit, next circuitState) {
	ep.state = next
	if !ep.lastLog.IsZero() && cb.now().Sub(ep.lastLog) < time.Minute && next != stateClosed {
		return
	}
	log.Printf("[THREAD-CIRCUIT] Circuit for %s is now %s", endpoint, next)
	ep.lastLog = cb.now()
}
