// Package ratelimit implements an in-memory sliding-window limiter keyed by
// bucket name and client IP.
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// Classify is the bucket name for the classification endpoints.
const Classify = "classify"

// fallback applies to bucket names with no configured limits.
var fallback = Bucket{MaxRequests: 60, Window: time.Minute}

// sweepEvery is how often Allow drops keys whose hits have all expired.
const sweepEvery = time.Minute

// Limiter is an in-memory sliding-window rate limiter per key.
type Limiter struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	buckets   map[string]Bucket
	maxWindow time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// New creates a limiter with the given named buckets.
func New(buckets map[string]Bucket) *Limiter {
	b := make(map[string]Bucket, len(buckets))
	maxWindow := fallback.Window
	for name, bucket := range buckets {
		b[name] = bucket
		maxWindow = max(maxWindow, bucket.Window)
	}
	return &Limiter{hits: make(map[string][]time.Time), buckets: b, maxWindow: maxWindow, now: time.Now}
}

// Bucket returns the limits for name.
func (l *Limiter) Bucket(name string) Bucket {
	if b, ok := l.buckets[name]; ok {
		return b
	}
	return fallback
}

// Allow checks if a request identified by key is within the rate limit for the
// given bucket. Returns true if allowed.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maxWindow = max(l.maxWindow, bucket.Window)
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}
	cutoff := now.Add(-bucket.Window)

	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// sweep removes keys with no hit inside the longest window seen. Callers
// hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.maxWindow)
	for key, times := range l.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
	l.lastSweep = now
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// Take records a request from r's client against the named bucket. It
// returns false with the bucket when the client is over the limit.
func (l *Limiter) Take(r *http.Request, bucketName string) (Bucket, bool) {
	bucket := l.Bucket(bucketName)
	return bucket, l.Allow(bucketName+":"+ClientIP(r), bucket)
}

// RetryAfter is the Retry-After value in seconds for bucket.
func RetryAfter(bucket Bucket) int {
	return int(bucket.Window.Seconds())
}

// Check writes a 429 response if the client is over the limit for the named
// bucket. Returns true if the request was rejected.
func (l *Limiter) Check(w http.ResponseWriter, r *http.Request, bucketName string) bool {
	bucket, ok := l.Take(r, bucketName)
	if ok {
		return false
	}

	retry := RetryAfter(bucket)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error":               "Rate limited",
		"retry_after_seconds": retry,
	})
	return true
}

// Middleware applies the named bucket to every request of next.
func (l *Limiter) Middleware(bucketName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Check(w, r, bucketName) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the request's remote address without the port. Forwarding
// headers are never read here; when the server sits behind a trusted proxy
// chi's RealIP middleware rewrites RemoteAddr before this runs.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
