package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ethoparts/marketplace-backend/api/responses"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PublicRateLimiter is a per-IP token bucket for unauthenticated lookups.
// State is per process; idle visitors are dropped after ttl.
type PublicRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewPublicRateLimiter(rps float64, burst int, ttl time.Duration) *PublicRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PublicRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (p *PublicRateLimiter) allow(ip string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) > p.ttl {
		for key, v := range p.visitors {
			if now.Sub(v.lastSeen) > p.ttl {
				delete(p.visitors, key)
			}
		}
		p.lastSweep = now
	}

	v, ok := p.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (p *PublicRateLimiter) Middleware(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.limit <= 0 || p.allow(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "path", r.URL.Path), "public.rate_limit.blocked")
			}
			w.Header().Set("Retry-After", "1")
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
		})
	}
}
