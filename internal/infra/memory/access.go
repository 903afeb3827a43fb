package memory

import (
	"context"
	"sync"
)

// AllowAllAccess entitles every user to every quiz. The real entitlement
// rules (assignments, groups, phase unlocks) live upstream of this service.
type AllowAllAccess struct{}

func (AllowAllAccess) IsEntitled(context.Context, string, string) (bool, error) {
	return true, nil
}

// EntitlementList is a fixed allow-list keyed by user reference, used in
// tests and demo wiring.
type EntitlementList struct {
	mu      sync.RWMutex
	allowed map[string]map[string]struct{} // userRef -> quiz IDs
}

func NewEntitlementList() *EntitlementList {
	return &EntitlementList{allowed: make(map[string]map[string]struct{})}
}

func (l *EntitlementList) Grant(userRef, quizID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowed[userRef] == nil {
		l.allowed[userRef] = make(map[string]struct{})
	}
	l.allowed[userRef][quizID] = struct{}{}
}

func (l *EntitlementList) IsEntitled(_ context.Context, userRef, quizID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.allowed[userRef][quizID]
	return ok, nil
}

// StaticIdentityResolver resolves display names from a fixed map; unknown
// references resolve to an empty name, which callers treat as a miss.
type StaticIdentityResolver struct {
	names map[string]string
}

func NewStaticIdentityResolver(names map[string]string) *StaticIdentityResolver {
	return &StaticIdentityResolver{names: names}
}

func (r *StaticIdentityResolver) DisplayName(_ context.Context, userRef string) (string, error) {
	return r.names[userRef], nil
}
