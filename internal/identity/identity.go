// Package identity resolves Slack users to the names Maven greets them by.
package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// DefaultName is used when a user's name cannot be resolved.
const DefaultName = "Manager"

const defaultCacheTTL = time.Hour

type contextKey int

const (
	userIDKey contextKey = iota
	sessionIDKey
)

// WithUser returns ctx carrying the user and session IDs for logging.
func WithUser(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// UserIDFromContext extracts the user ID from ctx.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the session ID from ctx.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// UserLookup fetches a workspace member.
type UserLookup interface {
	UserInfo(ctx context.Context, userID string) (*slack.User, error)
}

type cachedName struct {
	name    string
	expires time.Time
}

// Directory resolves display names with a small in-process cache.
// Lookup failures fall back to DefaultName and are not cached.
type Directory struct {
	lookup UserLookup
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedName
}

// NewDirectory creates a directory backed by lookup.
func NewDirectory(lookup UserLookup) *Directory {
	return &Directory{
		lookup: lookup,
		ttl:    defaultCacheTTL,
		now:    time.Now,
		cache:  make(map[string]cachedName),
	}
}

// DisplayName returns the user's first name, or DefaultName.
func (d *Directory) DisplayName(ctx context.Context, userID string) string {
	if userID == "" {
		return DefaultName
	}

	d.mu.Lock()
	if c, ok := d.cache[userID]; ok && d.now().Before(c.expires) {
		d.mu.Unlock()
		return c.name
	}
	d.mu.Unlock()

	user, err := d.lookup.UserInfo(ctx, userID)
	if err != nil {
		slog.Warn("User lookup failed, using default name", "user_id", userID, "error", err)
		return DefaultName
	}

	name := firstName(user)
	d.mu.Lock()
	d.cache[userID] = cachedName{name: name, expires: d.now().Add(d.ttl)}
	d.mu.Unlock()
	return name
}

func firstName(u *slack.User) string {
	if u == nil {
		return DefaultName
	}
	for _, candidate := range []string{u.RealName, u.Profile.RealName, u.Profile.DisplayName} {
		if fields := strings.Fields(candidate); len(fields) > 0 {
			return fields[0]
		}
	}
	return DefaultName
}
