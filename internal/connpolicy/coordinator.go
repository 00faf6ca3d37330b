package connpolicy

import (
	"sync"
	"time"
)

// Decision is the outcome of one disconnect check.
type Decision struct {
	Disconnect bool
	Reason     string
	Policy     Policy
}

type session struct {
	matchID       string
	lastHeartbeat time.Time
}

type matchRecord struct {
	state          string
	suspendedUntil time.Time
}

// Coordinator tracks player heartbeats and match round states and answers
// disconnect checks. It is read from every connected player's heartbeat
// watchdog concurrently with match-state updates, so all mutable state is
// keyed by id behind a RWMutex and records are replaced whole, never
// partially mutated.
type Coordinator struct {
	mu       sync.RWMutex
	policies map[string]Policy
	sessions map[string]session
	matches  map[string]matchRecord

	waitingPolicy Policy

	// now is swappable for tests.
	now func() time.Time
}

// NewCoordinator builds a coordinator with the policy table derived from
// cfg.
func NewCoordinator(cfg Config) *Coordinator {
	table := PolicyTable(cfg)
	return &Coordinator{
		policies:      table,
		sessions:      make(map[string]session),
		matches:       make(map[string]matchRecord),
		waitingPolicy: table["waiting"],
		now:           time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// RegisterPlayer starts tracking a player session, optionally bound to a
// match. The heartbeat clock starts at registration time.
func (c *Coordinator) RegisterPlayer(playerID, matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[playerID] = session{matchID: matchID, lastHeartbeat: c.now()}
}

// UnregisterPlayer stops tracking a player session.
func (c *Coordinator) UnregisterPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, playerID)
}

// UpdatePlayerHeartbeat records a heartbeat arrival. Unknown players are a
// no-op; the transport may deliver a late heartbeat after unregistration.
func (c *Coordinator) UpdatePlayerHeartbeat(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[playerID]
	if !ok {
		return
	}
	s.lastHeartbeat = c.now()
	c.sessions[playerID] = s
}

// UpdateMatchState binds a match to a new round state. Any active
// suspension is cleared, since a new policy and timeout now apply.
func (c *Coordinator) UpdateMatchState(matchID, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches[matchID] = matchRecord{state: state}
}

// Suspend pauses all disconnect decisions for a match until the given
// time, regardless of policy. Used during known transition windows, e.g.
// immediately after a round-end broadcast.
func (c *Coordinator) Suspend(matchID string, until time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.matches[matchID]
	if !ok {
		return
	}
	rec.suspendedUntil = until
	c.matches[matchID] = rec
}

// RemoveMatch evicts a match record. Player sessions bound to it fall back
// to the waiting policy until they are unregistered.
func (c *Coordinator) RemoveMatch(matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.matches, matchID)
}

// ShouldDisconnect classifies the elapsed heartbeat interval for one
// player. Precedence: suspension > heartbeat-enabled flag > elapsed time
// versus the policy timeout. The grace period is not part of the
// threshold; the transport applies it to the reconnect window after a
// disconnect decision.
func (c *Coordinator) ShouldDisconnect(playerID string) Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[playerID]
	if !ok {
		// Not a tracked session: nothing legitimate keeps it alive.
		return Decision{Disconnect: true, Reason: "unregistered player"}
	}

	now := c.now()

	policy := c.waitingPolicy
	var rec matchRecord
	haveMatch := false
	if s.matchID != "" {
		if rec, haveMatch = c.matches[s.matchID]; haveMatch {
			if p, ok := c.policies[rec.state]; ok {
				policy = p
			}
		}
	}

	if haveMatch && now.Before(rec.suspendedUntil) {
		return Decision{Reason: "match suspended for transition window", Policy: policy}
	}

	if !policy.HeartbeatEnabled {
		return Decision{Reason: policy.Rationale, Policy: policy}
	}

	elapsed := now.Sub(s.lastHeartbeat)
	if elapsed > policy.Timeout {
		return Decision{Disconnect: true, Reason: "heartbeat timeout exceeded", Policy: policy}
	}

	return Decision{Reason: "heartbeat within timeout", Policy: policy}
}

// TrackedPlayers returns the ids of all tracked sessions. Used by the
// transport watchdog to sweep connections.
func (c *Coordinator) TrackedPlayers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		out = append(out, id)
	}
	return out
}
