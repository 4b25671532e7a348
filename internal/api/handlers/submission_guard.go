package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
	"golang.org/x/time/rate"
)

const (
	submissionRateLimit   = 5
	submissionRateWindow  = time.Hour
	submissionDedupWindow = 24 * time.Hour
)

// SubmissionGuard throttles public form submissions per client and drops
// exact repeats. It uses the shared cache when one is configured and an
// in-process limiter otherwise.
type SubmissionGuard struct {
	cache   providers.CacheProvider
	local   *localRateLimiter
	deduper *localDeduper
	limit   int
	window  time.Duration
	dedup   time.Duration
}

// NewSubmissionGuard creates a guard. cache may be nil.
func NewSubmissionGuard(cache providers.CacheProvider) *SubmissionGuard {
	return &SubmissionGuard{
		cache:   cache,
		local:   newLocalRateLimiter(),
		deduper: newLocalDeduper(),
		limit:   submissionRateLimit,
		window:  submissionRateWindow,
		dedup:   submissionDedupWindow,
	}
}

// Admit reports whether a submission of kind may proceed. When it may not,
// the response has already been written. A fingerprinted submission is
// remembered as seen; call release if it then fails so the client can retry.
func (g *SubmissionGuard) Admit(w http.ResponseWriter, r *http.Request, kind string, fingerprint ...string) (release func(), ok bool) {
	release = func() {}
	if g == nil {
		return release, true
	}
	ip := clientIP(r)

	allowed, retryAfter := g.allowRequest(r.Context(), kind+":rate:"+ip)
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return release, false
	}

	if len(fingerprint) > 0 {
		dupKey := kind + ":dup:" + submissionFingerprint(ip, fingerprint...)
		if g.isDuplicate(r.Context(), dupKey) {
			respondWithJSON(w, http.StatusAccepted, map[string]string{
				"status": "duplicate_ignored",
			})
			return release, false
		}
		release = func() { g.forget(context.WithoutCancel(r.Context()), dupKey) }
	}
	return release, true
}

func (g *SubmissionGuard) allowRequest(ctx context.Context, key string) (bool, time.Duration) {
	if g.cache == nil {
		return g.local.allow(key, g.limit, g.window)
	}

	count, err := g.cache.Incr(ctx, key, int(g.window.Seconds()))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("rate limit cache unavailable, using local limiter")
		return g.local.allow(key, g.limit, g.window)
	}
	if count > int64(g.limit) {
		return false, g.window
	}
	return true, g.window
}

func (g *SubmissionGuard) isDuplicate(ctx context.Context, key string) bool {
	if g.cache == nil {
		return g.deduper.seen(key, g.dedup)
	}

	stored, err := g.cache.SetNX(ctx, key, []byte("1"), int(g.dedup.Seconds()))
	if err != nil {
		return g.deduper.seen(key, g.dedup)
	}
	return !stored
}

func (g *SubmissionGuard) forget(ctx context.Context, key string) {
	g.deduper.forget(key)
	if g.cache == nil {
		return
	}
	if err := g.cache.Delete(ctx, key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to clear duplicate marker")
	}
}

// localRateLimiter keeps one token bucket per client key. A bucket holds
// limit tokens and refills one token every window/limit.
type localRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localRateState
}

type localRateState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		limiters: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now, window)

	state, ok := l.limiters[key]
	if !ok {
		every := rate.Every(window / time.Duration(limit))
		state = &localRateState{limiter: rate.NewLimiter(every, limit)}
		l.limiters[key] = state
	}
	state.lastSeen = now

	res := state.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, window
}

// evict drops buckets idle for a full window; they would be full again anyway.
func (l *localRateLimiter) evict(now time.Time, window time.Duration) {
	for key, state := range l.limiters {
		if now.Sub(state.lastSeen) > window {
			delete(l.limiters, key)
		}
	}
}

type localDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newLocalDeduper() *localDeduper {
	return &localDeduper{
		entries: make(map[string]time.Time),
	}
}

func (d *localDeduper) seen(key string, window time.Duration) bool {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for k, expiresAt := range d.entries {
		if !now.Before(expiresAt) {
			delete(d.entries, k)
		}
	}

	if _, ok := d.entries[key]; ok {
		return true
	}

	d.entries[key] = now.Add(window)
	return false
}

func (d *localDeduper) forget(key string) {
	d.mu.Lock()
	delete(d.entries, key)
	d.mu.Unlock()
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func submissionFingerprint(ip string, fields ...string) string {
	normalized := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		normalized = append(normalized, normalizeText(f))
	}
	normalized = append(normalized, ip)

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

func normalizeText(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
