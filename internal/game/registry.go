package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"arena-duel/internal/config"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchExists     = errors.New("match already registered")
	ErrPlayerNotFound  = errors.New("player not in any match")
	ErrArenaNotFound   = errors.New("arena not found")
	ErrRegistryFull    = errors.New("registry at capacity")
	ErrRegistryClosed  = errors.New("registry shut down")
	ErrMatchCompleted  = errors.New("match already completed")
	ErrSamePlayerTwice = errors.New("both slots name the same player")
)

// Registry owns every live match on this server and routes external
// commands (intents, forfeits, disconnect notices) to the right match's
// queue. It never touches match state directly.
type Registry struct {
	mu       sync.RWMutex
	matches  map[string]*Match
	byPlayer map[string]*Match
	closed   bool

	cfg      config.SimConfig
	roundCfg config.RoundConfig
	maxSize  int

	events      EventSink
	broadcaster Broadcaster
	listener    StateListener

	onTick        func(time.Duration)
	onCountChange func(int)
}

// RegistryDeps bundles the registry's collaborators.
type RegistryDeps struct {
	Sim         config.SimConfig
	Rounds      config.RoundConfig
	MaxMatches  int
	Events      EventSink
	Broadcaster Broadcaster
	Listener    StateListener

	// OnTick observes per-tick wall time, for metrics. Optional.
	OnTick func(time.Duration)
	// OnCountChange observes the live match count. Optional.
	OnCountChange func(int)
}

// NewRegistry builds an empty registry.
func NewRegistry(deps RegistryDeps) *Registry {
	return &Registry{
		matches:     make(map[string]*Match),
		byPlayer:    make(map[string]*Match),
		cfg:         deps.Sim,
		roundCfg:    deps.Rounds,
		maxSize:     deps.MaxMatches,
		events:      deps.Events,
		broadcaster: deps.Broadcaster,
		listener:    deps.Listener,

		onTick:        deps.OnTick,
		onCountChange: deps.OnCountChange,
	}
}

// SetBroadcaster installs the delta/event broadcaster. The transport layer
// and the registry reference each other, so wiring happens in two steps;
// call this before the first CreateMatch.
func (r *Registry) SetBroadcaster(b Broadcaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcaster = b
}

// CreateMatch registers and starts a match for two paired players. The
// match begins ticking immediately; round 1 countdown starts on the first
// tick.
func (r *Registry) CreateMatch(matchID string, playerIDs, classIDs [2]string, arenaID string) (*Match, error) {
	if playerIDs[0] == playerIDs[1] {
		return nil, ErrSamePlayerTwice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.matches[matchID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, matchID)
	}
	if r.maxSize > 0 && len(r.matches) >= r.maxSize {
		return nil, ErrRegistryFull
	}
	for _, pid := range playerIDs {
		if _, busy := r.byPlayer[pid]; busy {
			return nil, fmt.Errorf("player %s already in a match", pid)
		}
	}

	m, err := NewMatch(matchID, playerIDs, classIDs, arenaID, MatchDeps{
		Sim:         r.cfg,
		Rounds:      r.roundCfg,
		Events:      r.events,
		Broadcaster: r.broadcaster,
		Listener:    r.listener,
		OnTick:      r.onTick,
	})
	if err != nil {
		return nil, err
	}
	m.SetOnComplete(r.retire)

	r.matches[matchID] = m
	for _, pid := range playerIDs {
		r.byPlayer[pid] = m
	}

	m.Start()
	if r.onCountChange != nil {
		r.onCountChange(len(r.matches))
	}
	log.Printf("registry: match %s created (%s vs %s, arena %s)", matchID, playerIDs[0], playerIDs[1], arenaID)
	return m, nil
}

// retire stops a completed match and evicts it. Runs off the tick path via
// the match completion hook; calling it for an unknown id is a no-op.
func (r *Registry) retire(matchID string) {
	r.mu.Lock()
	m, ok := r.matches[matchID]
	if ok {
		delete(r.matches, matchID)
		for pid, pm := range r.byPlayer {
			if pm == m {
				delete(r.byPlayer, pid)
			}
		}
	}
	remaining := len(r.matches)
	r.mu.Unlock()

	if ok && r.onCountChange != nil {
		r.onCountChange(remaining)
	}

	if !ok {
		return
	}
	m.Stop()
	if r.listener != nil {
		r.listener.RemoveMatch(matchID)
	}
	log.Printf("registry: match %s retired", matchID)
}

// Match returns a live match by id.
func (r *Registry) Match(matchID string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return m, nil
}

// MatchForPlayer returns the live match a player belongs to.
func (r *Registry) MatchForPlayer(playerID string) (*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byPlayer[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return m, nil
}

// SubmitIntent routes a client intent to its match's queue.
func (r *Registry) SubmitIntent(it Intent) error {
	m, err := r.MatchForPlayer(it.PlayerID)
	if err != nil {
		return err
	}
	m.SubmitIntent(it)
	return nil
}

// Forfeit routes a voluntary forfeit. Forfeiting an already-completed
// match returns ErrMatchCompleted and changes nothing.
func (r *Registry) Forfeit(playerID string) error {
	m, err := r.MatchForPlayer(playerID)
	if err != nil {
		return err
	}
	if m.Status().Completed() {
		return ErrMatchCompleted
	}
	m.Forfeit(playerID)
	return nil
}

// NotifyDisconnect routes a disconnect-timeout notice from the transport
// layer. Unknown players are a no-op: the match may have retired between
// the policy decision and this call.
func (r *Registry) NotifyDisconnect(playerID string) {
	m, err := r.MatchForPlayer(playerID)
	if err != nil {
		return
	}
	m.NotifyDisconnect(playerID)
}

// RequestResync asks a player's match to ship a full snapshot next tick.
func (r *Registry) RequestResync(playerID string) error {
	m, err := r.MatchForPlayer(playerID)
	if err != nil {
		return err
	}
	m.RequestResync(playerID)
	return nil
}

// Count returns the number of live matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// MatchIDs lists live match ids, for diagnostics.
func (r *Registry) MatchIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops every live match and refuses further creation.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	stopped := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		stopped = append(stopped, m)
	}
	r.matches = make(map[string]*Match)
	r.byPlayer = make(map[string]*Match)
	r.mu.Unlock()

	for _, m := range stopped {
		m.Stop()
	}
	log.Printf("registry: shut down, %d matches stopped", len(stopped))
}
