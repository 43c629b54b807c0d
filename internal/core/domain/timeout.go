package domain

import "time"

// Timeout holds the three independent budgets described in spec.md §3:
// connect applies per TCP connect attempt, read applies per socket read,
// total bounds a single attempt end-to-end. A nil pointer field means
// "no limit" for that budget.
type Timeout struct {
	Connect *time.Duration
	Read    *time.Duration
	Total   *time.Duration
}

// Seconds builds a Timeout from plain float64 seconds, treating <= 0 as
// "unset" — the shape callers get from config/env (§6 "timeout" option).
func Seconds(connect, read, total float64) Timeout {
	return Timeout{
		Connect: durPtr(connect),
		Read:    durPtr(read),
		Total:   durPtr(total),
	}
}

func durPtr(seconds float64) *time.Duration {
	if seconds <= 0 {
		return nil
	}
	d := time.Duration(seconds * float64(time.Second))
	return &d
}

// NowFunc is overridable in tests; production code always uses
// time.Now, which on every supported platform returns a monotonic
// reading suitable for deadline arithmetic.
var NowFunc = time.Now

// Start captures a Deadline anchored at the current monotonic time.
func (t Timeout) Start() *Deadline {
	d := &Deadline{timeout: t, start: NowFunc()}
	if t.Total != nil {
		deadline := d.start.Add(*t.Total)
		d.totalDeadline = &deadline
	}
	return d
}

// Deadline is the derived, per-attempt clock described in spec.md §3.
// It is never restarted on retry; the retry controller decides whether
// to construct a fresh Timeout for the next attempt.
type Deadline struct {
	timeout       Timeout
	start         time.Time
	totalDeadline *time.Time
}

// ConnectTimeout returns the budget for the next TCP connect attempt:
// min(connect, total_remaining). A nil result means "no limit".
func (d *Deadline) ConnectTimeout() (*time.Duration, error) {
	return d.bounded(d.timeout.Connect)
}

// ReadTimeout returns the budget for the next individual socket read.
func (d *Deadline) ReadTimeout() (*time.Duration, error) {
	return d.bounded(d.timeout.Read)
}

func (d *Deadline) bounded(phase *time.Duration) (*time.Duration, error) {
	remaining, err := d.TotalRemaining()
	if err != nil {
		return nil, err
	}
	switch {
	case phase == nil && remaining == nil:
		return nil, nil
	case phase == nil:
		return remaining, nil
	case remaining == nil:
		return phase, nil
	case *phase < *remaining:
		return phase, nil
	default:
		return remaining, nil
	}
}

// TotalRemaining returns the time left within the total budget, or nil
// if no total budget was set. Once it reaches zero the method returns a
// KindReadTimeout error instead of a duration.
func (d *Deadline) TotalRemaining() (*time.Duration, error) {
	if d.totalDeadline == nil {
		return nil, nil
	}
	remaining := d.totalDeadline.Sub(NowFunc())
	if remaining <= 0 {
		return nil, NewError(KindReadTimeout, "deadline.total_remaining", nil)
	}
	return &remaining, nil
}

// Elapsed returns wall time since the deadline was started.
func (d *Deadline) Elapsed() time.Duration {
	return NowFunc().Sub(d.start)
}
