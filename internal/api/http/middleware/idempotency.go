package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const IdempotencyHeader = "Idempotency-Key"

type cachedResponse struct {
	pending     bool
	status      int
	contentType string
	body        []byte
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a caller repeats a request
// with the same Idempotency-Key. It must run after CallerAuth. Responses with
// a 5xx status, or from a handler that panicked, are not kept, so the request
// can be retried.
func Idempotency(ttl time.Duration) gin.HandlerFunc {
	store := cache.New(ttl, 2*ttl)

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}
		caller, _ := Caller(c)
		cacheKey := caller.Hex() + "|" + c.Request.Method + "|" + c.Request.URL.Path + "|" + key

		if err := store.Add(cacheKey, &cachedResponse{pending: true}, cache.DefaultExpiration); err != nil {
			v, found := store.Get(cacheKey)
			if !found {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "idempotency key expired, retry"})
				return
			}
			prev := v.(*cachedResponse)
			if prev.pending {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
				return
			}
			c.Header("Idempotent-Replayed", "true")
			c.Data(prev.status, prev.contentType, prev.body)
			c.Abort()
			return
		}

		// A handler that panics never reaches the store below; release the key.
		completed := false
		defer func() {
			if !completed {
				store.Delete(cacheKey)
			}
		}()

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()
		completed = true

		status := w.Status()
		if status >= 500 {
			store.Delete(cacheKey)
			return
		}
		store.Set(cacheKey, &cachedResponse{
			status:      status,
			contentType: w.Header().Get("Content-Type"),
			body:        w.body.Bytes(),
		}, cache.DefaultExpiration)
	}
}
