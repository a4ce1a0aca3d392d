package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/dto"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per actor (falling back to client IP) to
// perMinute, allowing bursts of the same size. Idle entries are dropped.
func RateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	store := make(map[string]*visitor)
	var mu sync.Mutex

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			for k, v := range store {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(store, k)
				}
			}
			mu.Unlock()
		}
	}()

	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		key := ActorFrom(c).ID
		if key == "" {
			key = c.ClientIP()
		}

		mu.Lock()
		v, ok := store[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, perMinute)}
			store[key] = v
		}
		v.lastSeen = time.Now()
		mu.Unlock()

		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Message: "Too many requests"})
			return
		}
		c.Next()
	}
}
