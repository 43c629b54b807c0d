// Package retry implements C7, the decision matrix from spec.md §4.7:
// given an attempt's outcome (an error or a response's status), it
// decides whether to retry, how long to sleep, and how to rewrite the
// request for a redirect — or raises MaxRetryError on exhaustion.
package retry

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/relaycore/httpcore/internal/core/domain"
)

// Outcome is what the facade observed for one attempt.
type Outcome struct {
	// Exactly one of Err or (StatusCode>0) is set.
	Err         error
	ErrPhase    Phase
	StatusCode  int
	Headers     *domain.HeaderBag
	RedirectsOn bool // whether the caller enabled redirect following
}

// Phase names which leg of the request/response exchange an error
// happened on, since the decision matrix treats connect vs read vs
// other-pre-send errors differently.
type Phase int

const (
	PhaseConnect Phase = iota
	PhaseRead
	PhaseOther
)

// Decision is the dispatcher's verdict for one attempt.
type Decision struct {
	Retry    bool
	Next     domain.Retry
	SleepFor time.Duration
	Event    domain.RetryEvent
	// Redirect-only fields, populated when Outcome.StatusCode is a
	// redirect status and the decision is to retry.
	RewriteMethod string // "" means keep the current method
	DropBody      bool
	StripHeaders  map[string]bool
}

// Decide implements the spec.md §4.7 decision matrix for one outcome.
// attempt is 1-indexed (first retry has attempt=1, matching the
// backoff formula). method/url describe the request that produced
// outcome; url is used only for diagnostics in RetryEvent/MaxRetryError.
func Decide(current domain.Retry, outcome Outcome, method, url string, attempt int) (Decision, error) {
	switch {
	case outcome.Err != nil && outcome.ErrPhase == PhaseConnect:
		return decideError(current, domain.CategoryConnect, outcome.Err, method, url, attempt, true)

	case outcome.Err != nil && outcome.ErrPhase == PhaseRead:
		if !current.IsAllowedMethod(method) {
			return Decision{}, wrapExhausted(current, outcome.Err, url)
		}
		return decideError(current, domain.CategoryRead, outcome.Err, method, url, attempt, true)

	case outcome.Err != nil:
		return decideError(current, domain.CategoryOther, outcome.Err, method, url, attempt, true)

	case current.IsForcedStatus(outcome.StatusCode) && current.IsAllowedMethod(method):
		return decideForcedStatus(current, outcome, method, url, attempt)

	case outcome.RedirectsOn && isRedirectStatus(outcome.StatusCode):
		return decideRedirect(current, outcome, method, url, attempt)

	default:
		// 2xx/1xx/non-retried status: hand the response back as-is.
		return Decision{Retry: false, Next: current}, nil
	}
}

func decideError(current domain.Retry, cat domain.RetryCategory, cause error, method, url string, attempt int, useBackoff bool) (Decision, error) {
	if current.Exhausted(cat) {
		return Decision{}, wrapExhausted(current, cause, url)
	}
	event := domain.RetryEvent{Attempt: attempt, Category: cat, Cause: cause, URL: url}
	next := current.Decrement(cat, event)
	sleep := time.Duration(0)
	if useBackoff {
		sleep = Backoff(current, attempt)
	}
	return Decision{Retry: true, Next: next, SleepFor: sleep, Event: event}, nil
}

func decideForcedStatus(current domain.Retry, outcome Outcome, method, url string, attempt int) (Decision, error) {
	if current.Exhausted(domain.CategoryStatus) {
		return Decision{}, wrapExhausted(current, nil, url)
	}
	event := domain.RetryEvent{Attempt: attempt, Category: domain.CategoryStatus, Status: outcome.StatusCode, URL: url}
	next := current.Decrement(domain.CategoryStatus, event)

	sleep := Backoff(current, attempt)
	if current.RespectRetryAfterHeader && outcome.Headers != nil {
		if ra, ok := ParseRetryAfter(outcome.Headers.Get("Retry-After"), current.BackoffMax); ok {
			sleep = ra
		}
	}
	return Decision{Retry: true, Next: next, SleepFor: sleep, Event: event}, nil
}

func decideRedirect(current domain.Retry, outcome Outcome, method, url string, attempt int) (Decision, error) {
	if current.Exhausted(domain.CategoryRedirect) {
		return Decision{}, wrapExhausted(current, nil, url)
	}
	event := domain.RetryEvent{Attempt: attempt, Category: domain.CategoryRedirect, Status: outcome.StatusCode, URL: url}
	next := current.Decrement(domain.CategoryRedirect, event)

	rewriteMethod, dropBody := RewriteMethodForRedirect(outcome.StatusCode, method)
	return Decision{
		Retry: true, Next: next, SleepFor: 0, Event: event,
		RewriteMethod: rewriteMethod, DropBody: dropBody,
		StripHeaders: current.RemoveHeadersOnRedirect,
	}, nil
}

func wrapExhausted(current domain.Retry, cause error, url string) error {
	return &domain.MaxRetryError{URL: url, Reason: cause, History: current.History}
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// jitterSource is overridable in tests so backoff assertions don't have
// to tolerate a random range (same pattern as domain.NowFunc).
var jitterSource = rand.Int63n

// Backoff implements spec.md §4.7 "Backoff": sleep = min(backoff_max,
// backoff_factor * 2^(attempt-1)), plus uniform(0, backoff_jitter) if
// backoff_jitter > 0. attempt is 1-indexed.
func Backoff(r domain.Retry, attempt int) time.Duration {
	if r.BackoffFactor <= 0 || attempt < 1 {
		return 0
	}
	seconds := r.BackoffFactor * math.Pow(2, float64(attempt-1))
	sleep := time.Duration(seconds * float64(time.Second))
	if r.BackoffMax > 0 && sleep > r.BackoffMax {
		sleep = r.BackoffMax
	}
	if r.BackoffJitter > 0 {
		sleep += time.Duration(jitterSource(int64(r.BackoffJitter)))
	}
	return sleep
}

// ParseRetryAfter implements spec.md §4.7 "Retry-After": integer
// seconds or an HTTP-date; negative/invalid is absent; a past date
// resolves to "no wait" (0); the result is capped at backoffMax*2.
func ParseRetryAfter(value string, backoffMax time.Duration) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return capRetryAfter(time.Duration(secs)*time.Second, backoffMax), true
	}

	if when, err := http.ParseTime(value); err == nil {
		wait := time.Until(when)
		if wait < 0 {
			return 0, true
		}
		return capRetryAfter(wait, backoffMax), true
	}

	return 0, false
}

func capRetryAfter(d time.Duration, backoffMax time.Duration) time.Duration {
	if backoffMax <= 0 {
		return d
	}
	maxWait := backoffMax * 2
	if d > maxWait {
		return maxWait
	}
	return d
}

// RewriteMethodForRedirect implements spec.md §4.7 "Method rewriting on
// redirect": 303 always becomes GET with the body dropped; 301/302 keep
// the method for HEAD/GET and turn any other method into GET with the
// body dropped (header stripping is left to the caller); 307/308 always
// preserve method+body.
func RewriteMethodForRedirect(status int, method string) (rewriteTo string, dropBody bool) {
	switch status {
	case http.StatusSeeOther:
		return http.MethodGet, true
	case http.StatusMovedPermanently, http.StatusFound:
		norm := domain.NormalizeMethod(method)
		if norm == http.MethodHead || norm == http.MethodGet {
			return "", false
		}
		return http.MethodGet, true
	default: // 307, 308
		return "", false
	}
}
