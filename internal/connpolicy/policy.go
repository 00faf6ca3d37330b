// Package connpolicy decides whether an elapsed heartbeat interval should
// be classified as a disconnect, given the owning match's current round
// state. Legitimate pauses (intermission, countdown, round-end display)
// must never be misread as network failure.
package connpolicy

import "time"

// Policy is the connection-monitoring record bound to one round state.
// Timeout is the disconnect-decision threshold; GracePeriod is extra time
// the transport grants a severed player to rejoin, never part of the
// threshold itself.
type Policy struct {
	HeartbeatEnabled bool          `json:"heartbeatEnabled"`
	Timeout          time.Duration `json:"timeout"`
	GracePeriod      time.Duration `json:"gracePeriod"`
	Rationale        string        `json:"rationale"`
}

// Config mirrors the connection policy options recognized in configuration.
type Config struct {
	BaseConnectionTimeout                time.Duration
	BaseGracePeriod                      time.Duration
	DisableHeartbeatDuringCriticalStates bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BaseConnectionTimeout:                10 * time.Second,
		BaseGracePeriod:                      5 * time.Second,
		DisableHeartbeatDuringCriticalStates: true,
	}
}

// PolicyTable builds the per-round-state policy set. Exactly one policy is
// active per match at any instant, selected by the match's current round
// state.
func PolicyTable(cfg Config) map[string]Policy {
	critical := Policy{
		HeartbeatEnabled: !cfg.DisableHeartbeatDuringCriticalStates,
		Timeout:          cfg.BaseConnectionTimeout * 3,
		GracePeriod:      cfg.BaseGracePeriod * 2,
		Rationale:        "state transition window, clients legitimately quiet",
	}

	return map[string]Policy{
		"waiting": {
			HeartbeatEnabled: true,
			Timeout:          cfg.BaseConnectionTimeout * 2,
			GracePeriod:      cfg.BaseGracePeriod * 2,
			Rationale:        "pre-match lobby, generous timeout while clients load",
		},
		"intermission": critical,
		"starting":     critical,
		"ending":       critical,
		"active": {
			HeartbeatEnabled: true,
			Timeout:          cfg.BaseConnectionTimeout,
			GracePeriod:      cfg.BaseGracePeriod,
			Rationale:        "live round, strict monitoring",
		},
		"sudden_death": {
			HeartbeatEnabled: true,
			Timeout:          cfg.BaseConnectionTimeout,
			GracePeriod:      cfg.BaseGracePeriod,
			Rationale:        "live overtime, strict monitoring",
		},
		"completed": {
			HeartbeatEnabled: false,
			Timeout:          cfg.BaseConnectionTimeout,
			GracePeriod:      cfg.BaseGracePeriod,
			Rationale:        "match over, sessions being torn down",
		},
	}
}
