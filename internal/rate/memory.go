package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter guarda los contadores en go-cache. Sirve para una sola instancia.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, time.Minute),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	k, rest := windowKey("", key, l.now().UTC(), l.window)
	for {
		if err := l.c.Add(k, int64(1), rest); err == nil {
			return buildResult(1, l.max, rest), nil
		}
		hits, err := l.c.IncrementInt64(k, 1)
		if err == nil {
			return buildResult(hits, l.max, rest), nil
		}
		// expiró entre Add e Increment: reintentar
	}
}

// Reset borra todos los contadores (tests y CLI).
func (l *MemoryLimiter) Reset() { l.c.Flush() }
