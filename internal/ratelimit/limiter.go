// Package ratelimit implements continuous token-bucket admission control.
// Buckets are keyed by (class, subject) and refill fractionally with wall
// time; the check-and-decrement for one bucket is atomic with respect to
// concurrent requests from the same subject, and unrelated subjects never
// contend on a shared lock.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Class selects which configured rule a check runs against.
type Class string

const (
	// ClassKey is the per-credential quota applied to every request.
	ClassKey Class = "key"
	// ClassWrite is the stricter per-credential quota applied to mutating
	// verbs in addition to ClassKey.
	ClassWrite Class = "write"
	// ClassIP is the per-source-address quota, a bound on key-less abuse.
	ClassIP Class = "ip"
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetrySeconds converts the denial wait into the integer Retry-After header
// value, at least 1.
func (r Result) RetrySeconds() int {
	s := int(math.Ceil(r.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// Admitter is the admission contract. A deployment spanning multiple
// processes swaps in an implementation backed by a shared atomic store
// without changing callers.
type Admitter interface {
	Admit(subject string, class Class) Result
}

type bucket struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	dead       bool // set by Sweep under mu; a dead bucket never admits
}

// take refills from elapsed wall time, then either consumes one token or
// computes how long until one is available. Refill and decrement happen under
// the same lock: two simultaneous requests can never both win the last token.
// alive is false when the janitor evicted this bucket; the caller must retry
// against a fresh one.
func (b *bucket) take(now time.Time) (res Result, alive bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dead {
		return Result{}, false
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.rate)
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Result{Allowed: true}, true
	}
	wait := (1 - b.tokens) / b.rate
	return Result{RetryAfter: time.Duration(wait * float64(time.Second))}, true
}

// Limiter is the in-memory Admitter. Buckets are created lazily at full
// capacity on first observation of a subject.
type Limiter struct {
	rules   map[Class]Rule
	now     func() time.Time
	buckets sync.Map // "class:subject" -> *bucket
}

// New creates a Limiter for the given rules. clock may be nil outside tests.
func New(rules map[Class]Rule, clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{rules: rules, now: clock}
}

// Admit checks one token out of the subject's bucket for the class. Classes
// without a configured rule admit unconditionally. Admit never blocks and
// performs no I/O; it charges for admission at decision time, not for
// completion of the admitted work.
func (l *Limiter) Admit(subject string, class Class) Result {
	rule, ok := l.rules[class]
	if !ok {
		return Result{Allowed: true}
	}

	key := string(class) + ":" + subject
	for {
		v, ok := l.buckets.Load(key)
		if !ok {
			fresh := &bucket{
				capacity:   float64(rule.Capacity),
				rate:       rule.RefillRate,
				tokens:     float64(rule.Capacity),
				lastRefill: l.now(),
			}
			v, _ = l.buckets.LoadOrStore(key, fresh)
		}
		if res, alive := v.(*bucket).take(l.now()); alive {
			return res
		}
		// The janitor evicted this bucket between lookup and take. Drop the
		// stale entry if it is still registered and retry; the dead bucket's
		// tokens were at capacity when it was marked, so nothing is lost.
		l.buckets.CompareAndDelete(key, v)
	}
}

// Sweep evicts buckets that have been idle for at least idleFor and are at
// ninety percent capacity or more. Draining buckets are never evicted, so a
// subject cannot regain quota early by having its bucket recycled.
func (l *Limiter) Sweep(idleFor time.Duration) {
	cutoff := l.now().Add(-idleFor)
	l.buckets.Range(func(key, v interface{}) bool {
		b := v.(*bucket)
		// Check, mark, and unregister under the bucket lock. An Admit racing
		// with the sweep either ran first (refreshing lastRefill, so the idle
		// check fails) or blocks on mu, finds the bucket dead, and retries
		// against a fresh one. A taken token can never be forgotten.
		b.mu.Lock()
		if b.lastRefill.Before(cutoff) && b.tokens >= b.capacity*0.9 {
			b.dead = true
			l.buckets.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

// Janitor runs Sweep on the given interval until stop is closed.
func (l *Limiter) Janitor(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Sweep(2 * interval)
		}
	}
}
