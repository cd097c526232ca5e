package realtime

import (
	"sort"
	"sync"
)

// Presence tracks which users currently hold at least one live socket. It is
// injected into the gateway so tests can observe it directly.
type Presence struct {
	mu    sync.RWMutex
	users map[string]int // userID -> open connection count
}

func NewPresence() *Presence {
	return &Presence{users: make(map[string]int)}
}

// Register counts a new connection for userID and reports whether the user
// just came online.
func (p *Presence) Register(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[userID]++
	return p.users[userID] == 1
}

// Unregister drops one connection for userID and reports whether the user
// just went offline.
func (p *Presence) Unregister(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.users[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.users, userID)
		return true
	}
	p.users[userID] = n - 1
	return false
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.users[userID]
	return ok
}

// Snapshot returns the online user ids, sorted for stable payloads.
func (p *Presence) Snapshot() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.users))
	for id := range p.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
