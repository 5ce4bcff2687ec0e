package authz

import (
	"context"
	"strings"
	"sync"

	"vulntrack/internal/domain/authz"
)

type memoKey struct{}

// requestMemo holds values computed once per request: resolved policies and
// built enforcers.
type requestMemo struct {
	mu      sync.Mutex
	entries map[string]any
}

// WithRequestMemo attaches an empty memo to ctx. Without one, nothing is
// memoized.
func WithRequestMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &requestMemo{entries: make(map[string]any)})
}

func memoFrom(ctx context.Context) *requestMemo {
	m, _ := ctx.Value(memoKey{}).(*requestMemo)
	return m
}

func memoLoad[T any](ctx context.Context, key string) (T, bool) {
	var zero T
	m := memoFrom(ctx)
	if m == nil {
		return zero, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

func memoStore(ctx context.Context, key string, v any) {
	if m := memoFrom(ctx); m != nil {
		m.mu.Lock()
		m.entries[key] = v
		m.mu.Unlock()
	}
}

// memoForget drops every entry derived from subject's policies.
func memoForget(ctx context.Context, subject string) {
	m := memoFrom(ctx)
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if key == policiesKey(subject) || (strings.HasPrefix(key, "enforcer:") && strings.HasSuffix(key, ":"+subject)) {
			delete(m.entries, key)
		}
	}
}

func policiesKey(subject string) string {
	return "policies:" + subject
}

func enforcerKey(level authz.Level, subject string) string {
	return "enforcer:" + string(level) + ":" + subject
}

func servicesKey(group string) string {
	return "services:" + group
}
