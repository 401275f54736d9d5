package runtime

import (
	"fmt"
	"sync"

	"github.com/vishvananda/netns"
)

// NSRegistry caches the network-namespace handle for each deployed node's
// container PID, so repeated tc/netem operations don't re-resolve it.
// Handles must be explicitly closed via Close/CloseAll — netns.NsHandle
// wraps an open file descriptor.
type NSRegistry struct {
	mu      sync.Mutex
	handles map[string]netns.NsHandle
}

// NewNSRegistry creates an empty registry.
func NewNSRegistry() *NSRegistry {
	return &NSRegistry{handles: make(map[string]netns.NsHandle)}
}

// Resolve returns the namespace handle for node, opening it from pid via
// /proc/<pid>/ns/net if not already cached.
func (r *NSRegistry) Resolve(node string, pid int) (netns.NsHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[node]; ok {
		return h, nil
	}
	h, err := netns.GetFromPid(pid)
	if err != nil {
		return netns.None(), fmt.Errorf("resolve namespace for node %s (pid %d): %w", node, pid, err)
	}
	r.handles[node] = h
	return h, nil
}

// Close releases and forgets node's cached handle, if any.
func (r *NSRegistry) Close(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[node]; ok {
		h.Close()
		delete(r.handles, node)
	}
}

// CloseAll releases every cached handle.
func (r *NSRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for node, h := range r.handles {
		h.Close()
		delete(r.handles, node)
	}
}
