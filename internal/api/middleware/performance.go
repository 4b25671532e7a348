package middleware

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// bodies smaller than this are sent uncompressed
const minGzipBytes = 1024

// ResponseOptimization buffers JSON responses so they can carry an ETag,
// answers matching If-None-Match with 304 and gzips large bodies. Event
// streams bypass it: they must be flushed unbuffered.
func ResponseOptimization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isEventStream(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Cache-Control", cacheControlFor(r.URL.Path))

		buf := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(buf, r)

		body := buf.body.Bytes()
		if buf.status != http.StatusOK || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			w.WriteHeader(buf.status)
			_, _ = w.Write(body)
			return
		}

		sum := sha256.Sum256(body)
		etag := `"` + hex.EncodeToString(sum[:16]) + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if len(body) >= minGzipBytes && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			var gz bytes.Buffer
			zw := gzip.NewWriter(&gz)
			if _, err := zw.Write(body); err == nil && zw.Close() == nil {
				body = gz.Bytes()
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Add("Vary", "Accept-Encoding")
			}
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

func isEventStream(path string) bool {
	return strings.HasPrefix(path, "/api/stream/") && path != "/api/stream/stats"
}

func cacheControlFor(path string) string {
	switch {
	case path == "/api/categories":
		return "public, max-age=3600"
	case strings.HasPrefix(path, "/api/services") || path == "/api/testimonials":
		// live collections: browsers revalidate with the ETag
		return "public, max-age=0, must-revalidate"
	default:
		return "private, no-cache, must-revalidate"
	}
}

type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(status int) { b.status = status }

func (b *bufferedWriter) Write(p []byte) (int, error) { return b.body.Write(p) }
