package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	PerMinute       float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		PerMinute:       60,
		Burst:           60,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type entry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// KeyedLimiter admits requests against per-key token buckets. Buckets are
// created lazily on first sight of a key and garbage-collected after MaxAge
// of inactivity.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*entry
	rate    rate.Limit
	burst   int
	done    chan struct{}
	once    sync.Once
}

func NewKeyedLimiter(cfg Config) *KeyedLimiter {
	l := &KeyedLimiter{
		entries: make(map[string]*entry),
		rate:    rate.Limit(cfg.PerMinute / 60.0),
		burst:   cfg.Burst,
		done:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 && cfg.MaxAge > 0 {
		go l.cleanupLoop(cfg.CleanupInterval, cfg.MaxAge)
	}

	return l
}

// Allow consumes one token from key's bucket. It returns false without side
// effect when the bucket is empty; tokens are never borrowed against future
// refill.
func (l *KeyedLimiter) Allow(key string) bool {
	e := l.get(key)

	e.mu.Lock()
	e.lastSeen = time.Now()
	e.mu.Unlock()

	return e.limiter.Allow()
}

func (l *KeyedLimiter) get(key string) *entry {
	l.mu.RLock()
	e, exists := l.entries[key]
	l.mu.RUnlock()
	if exists {
		return e
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, exists = l.entries[key]; exists {
		return e
	}
	e = &entry{
		limiter:  rate.NewLimiter(l.rate, l.burst),
		lastSeen: time.Now(),
	}
	l.entries[key] = e
	return e
}

func (l *KeyedLimiter) cleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for key, e := range l.entries {
				e.mu.Lock()
				lastSeen := e.lastSeen
				e.mu.Unlock()
				if now.Sub(lastSeen) > maxAge {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (l *KeyedLimiter) Close() {
	l.once.Do(func() { close(l.done) })
}
