package domain

import "time"

// RetryCategory names which counter a retry decision decremented,
// matching the rows of the decision matrix in spec.md §4.7.
type RetryCategory int

const (
	CategoryConnect RetryCategory = iota
	CategoryRead
	CategoryOther
	CategoryStatus
	CategoryRedirect
)

func (c RetryCategory) String() string {
	switch c {
	case CategoryConnect:
		return "connect"
	case CategoryRead:
		return "read"
	case CategoryOther:
		return "other"
	case CategoryStatus:
		return "status"
	case CategoryRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// RetryEvent records one attempt's outcome for diagnostics, accumulated
// in Retry.History and surfaced via MaxRetryError.
type RetryEvent struct {
	Attempt  int
	Category RetryCategory
	Cause    error
	Status   int
	SleptFor time.Duration
	URL      string
}

// Retry is the immutable policy + remaining-budget value described in
// spec.md §3. Every transition (Decrement*) returns a new value; nothing
// here mutates the receiver, so a Retry can be safely shared across
// concurrent requests that started from the same configured default.
type Retry struct {
	Total    int
	Connect  int
	Read     int
	Status   int
	Redirect int
	Other    int

	AllowedMethods          map[string]bool
	StatusForcelist         map[int]bool
	BackoffFactor           float64
	BackoffMax              time.Duration
	BackoffJitter           time.Duration
	RespectRetryAfterHeader bool
	RemoveHeadersOnRedirect map[string]bool

	History []RetryEvent
}

// DefaultRetry mirrors urllib3-derived defaults the spec implies: a
// total budget of three retries (up to four attempts), conservative
// backoff, the canonical status forcelist.
func DefaultRetry() Retry {
	return Retry{
		Total:                   3,
		Connect:                 3,
		Read:                    3,
		Status:                  3,
		Redirect:                5,
		Other:                   3,
		AllowedMethods:          DefaultAllowedRetryMethods(),
		StatusForcelist:         map[int]bool{413: true, 429: true, 503: true},
		BackoffFactor:           0,
		BackoffMax:              120 * time.Second,
		RespectRetryAfterHeader: true,
		RemoveHeadersOnRedirect: map[string]bool{"Authorization": true},
	}
}

// Exhausted reports whether decrementing cat would take any counter
// negative — the condition spec.md §4.7 calls "Exhaustion".
func (r Retry) Exhausted(cat RetryCategory) bool {
	if r.Total <= 0 {
		return true
	}
	switch cat {
	case CategoryConnect:
		return r.Connect <= 0
	case CategoryRead:
		return r.Read <= 0
	case CategoryOther:
		return r.Other <= 0
	case CategoryStatus:
		return r.Status <= 0
	case CategoryRedirect:
		return r.Redirect <= 0
	default:
		return true
	}
}

// Decrement returns a new Retry with cat (and Total, per the invariant
// that "total is always decremented when any category would be")
// reduced by one, plus the event appended to History.
func (r Retry) Decrement(cat RetryCategory, event RetryEvent) Retry {
	out := r
	out.Total = r.Total - 1
	switch cat {
	case CategoryConnect:
		out.Connect = r.Connect - 1
	case CategoryRead:
		out.Read = r.Read - 1
	case CategoryOther:
		out.Other = r.Other - 1
	case CategoryStatus:
		out.Status = r.Status - 1
	case CategoryRedirect:
		out.Redirect = r.Redirect - 1
	}
	out.History = append(append([]RetryEvent{}, r.History...), event)
	return out
}

// IsAllowedMethod reports whether method may be retried on a read/error/
// status outcome under this policy.
func (r Retry) IsAllowedMethod(method string) bool {
	return r.AllowedMethods[NormalizeMethod(method)]
}

// IsForcedStatus reports whether status is in the configured forcelist.
func (r Retry) IsForcedStatus(status int) bool {
	return r.StatusForcelist[status]
}
