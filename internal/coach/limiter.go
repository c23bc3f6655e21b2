package coach

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps generation requests per user. A nil Limiter allows everything.
type Limiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu    sync.Mutex
	users map[string]*userLimit
}

type userLimit struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiter allows perMinute generations per user, refilled evenly across
// the minute. perMinute <= 0 disables limiting and returns nil.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	return &Limiter{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: perMinute,
		now:   time.Now,
		users: make(map[string]*userLimit),
	}
}

// Allow reports whether userID may start another generation now.
func (l *Limiter) Allow(userID string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	l.mu.Lock()
	u, ok := l.users[userID]
	if !ok {
		u = &userLimit{lim: rate.NewLimiter(l.limit, l.burst)}
		l.users[userID] = u
	}
	u.seen = now
	l.mu.Unlock()
	return u.lim.AllowN(now, 1)
}

// IdleAfter is how long a bucket goes unused before it is pruned. It is
// longer than the one-minute refill window.
const IdleAfter = 10 * time.Minute

// Prune drops users not seen since before and returns how many went.
func (l *Limiter) Prune(before time.Time) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for id, u := range l.users {
		if u.seen.Before(before) {
			delete(l.users, id)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of users currently tracked.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
