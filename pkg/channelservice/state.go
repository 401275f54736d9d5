package channelservice

import (
	"sort"
	"sync"

	"github.com/jihwankim/wireless-emulator/pkg/channelengine"
	"github.com/jihwankim/wireless-emulator/pkg/interference"
	"github.com/jihwankim/wireless-emulator/pkg/linkbudget"
)

// cachedPath is the internal (non-wire) record kept per directional link
// identifier, used both to answer /visualization/state and to detect
// transmission-state changes that require recompute.
type cachedPath struct {
	txPosition    Point
	rxPosition    Point
	distanceM     float64
	paths         []channelengine.Path
	delaySpreadNs float64
}

// State is the channel service's process-wide mutable state: the set of
// loaded scenes (via the channel engine), the MCS table registry, the path
// cache keyed by directional link identifier, and the most recent device
// positions. Every request handler borrows this for the duration of one
// call; there is no implicit module-level singleton (see design notes §9).
type State struct {
	mu sync.Mutex

	engine       *channelengine.Engine
	interference *interference.Engine
	mcsRegistry  *linkbudget.Registry
	jitter       linkbudget.JitterPolicy

	sceneFile string
	pathCache map[string]cachedPath
	positions map[string]Point
	active    map[string]bool // interface id -> is_active, from /transmission/state
}

// NewState constructs the service state around a concrete ray tracer
// (either the HTTP-backed solver or the free-space fallback).
func NewState(tracer channelengine.RayTracer) *State {
	engine := channelengine.NewEngine(tracer)
	return &State{
		engine:       engine,
		interference: interference.NewEngine(engine),
		mcsRegistry:  linkbudget.NewRegistry(),
		jitter:       linkbudget.DefaultJitterPolicy,
		pathCache:    make(map[string]cachedPath),
		positions:    make(map[string]Point),
		active:       make(map[string]bool),
	}
}

// CacheSize returns the number of distinct directional links currently cached.
func (s *State) CacheSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pathCache)
}

// cacheLinkKeys returns a sorted snapshot of cached link identifiers, for
// deterministic visualization output.
func (s *State) cacheLinkKeys() []string {
	keys := make([]string, 0, len(s.pathCache))
	for k := range s.pathCache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
