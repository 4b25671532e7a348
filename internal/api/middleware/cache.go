package middleware

import (
	"bytes"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/synergyayush/lookindharamshala/internal/domain/providers"
)

// cachedRoutes are the only responses stored in the shared cache, with their
// TTL in seconds. Their content never changes at runtime; anything backed by a
// live collection must not be cached here or it would outlive the next change.
var cachedRoutes = map[string]int{
	"/api/categories": 3600,
	"/api/links/map":  3600,
}

// CacheMiddleware serves the static directory routes from the shared cache
type CacheMiddleware struct {
	cache providers.CacheProvider
}

// NewCacheMiddleware creates a new cache middleware
func NewCacheMiddleware(cache providers.CacheProvider) *CacheMiddleware {
	return &CacheMiddleware{cache: cache}
}

// Middleware returns the cache middleware handler
func (m *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ttl, ok := cachedRoutes[r.URL.Path]
		if !ok || r.Method != http.MethodGet || m.cache == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := "http:cache:" + r.URL.RequestURI()
		logger := log.Ctx(r.Context())

		if cached, err := m.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(cached)
			return
		}
		w.Header().Set("X-Cache", "MISS")

		tee := &teeWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(tee, r)

		if tee.status == http.StatusOK && tee.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), key, tee.body.Bytes(), ttl); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("failed to cache response")
			}
		}
	})
}

// teeWriter passes the response through and keeps a copy of the body
type teeWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (t *teeWriter) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.body.Write(p)
	return t.ResponseWriter.Write(p)
}
