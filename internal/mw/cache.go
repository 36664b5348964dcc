package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// cachedResponse is a stored 2xx reply.
type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// recorder tees the handler's body into a buffer.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// cacheKey is the request path plus its raw query, so entries can be
// matched by path prefix on invalidation.
func cacheKey(req *http.Request) string {
	if req.URL.RawQuery == "" {
		return req.URL.Path
	}
	return req.URL.Path + "?" + req.URL.RawQuery
}

// Cache serves repeated GET requests from store for ttl. Requests sent with
// "Cache-Control: no-cache" skip the lookup but still refresh the entry.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		bypass := strings.Contains(c.GetHeader("Cache-Control"), "no-cache")
		if v, found := store.Get(key); found && !bypass {
			hit := v.(cachedResponse)
			h := c.Writer.Header()
			for k, vals := range hit.headers {
				h[k] = vals
			}
			h.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(hit.status)
			_, _ = c.Writer.Write(hit.body)
			c.Abort()
			return
		}

		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if status := rec.Status(); status >= http.StatusOK && status < http.StatusMultipleChoices {
			headers := rec.Header().Clone()
			headers.Del("X-Cache")
			store.Set(key, cachedResponse{
				status:  status,
				headers: headers,
				body:    bytes.Clone(rec.buf.Bytes()),
			}, ttl)
		}
	}
}

// Invalidate drops every cached response for the given paths, including
// their sub-resources and query variants.
func Invalidate(store *cache.Cache, paths ...string) int {
	dropped := 0
	for key := range store.Items() {
		for _, p := range paths {
			if p != "" && covers(p, key) {
				store.Delete(key)
				dropped++
				break
			}
		}
	}
	return dropped
}

// covers reports whether key is path itself, below it, or path with a query.
func covers(path, key string) bool {
	if !strings.HasPrefix(key, path) {
		return false
	}
	rest := key[len(path):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}
