package authz

import (
	"sync"

	"github.com/zarforum/zarforum/internal/roles"
)

// index is the in-memory role to permission-set map. It is a read-through
// cache over role_permissions, rebuilt wholesale after every committed
// grant or revoke; the table stays the single source of truth.
type index struct {
	mu     sync.RWMutex
	grants map[roles.Role]map[string]struct{}
	loaded bool
}

func newIndex() *index {
	return &index{}
}

func (i *index) replace(grants []Grant) {
	next := make(map[roles.Role]map[string]struct{}, len(roles.All()))
	for _, g := range grants {
		set, ok := next[g.Role]
		if !ok {
			set = make(map[string]struct{})
			next[g.Role] = set
		}
		set[g.Permission] = struct{}{}
	}
	i.mu.Lock()
	i.grants = next
	i.loaded = true
	i.mu.Unlock()
}

func (i *index) has(role roles.Role, permission string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	set, ok := i.grants[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

func (i *index) isLoaded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loaded
}
