// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all match and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds fixed-tick simulation settings shared by every match.
type SimConfig struct {
	TickRate        int           // Simulation ticks per second
	StaleWindow     time.Duration // Intents older than this are discarded
	IntentsPerSec   float64       // Per-player intent rate limit
	IntentBurst     int           // Per-player intent burst allowance
	MaxQueuedIntent int           // Hard cap on queued intents per match
	MaxProjectiles  int           // Hard cap on live projectiles per match
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:        30,
		StaleWindow:     2 * time.Second,
		IntentsPerSec:   60, // 2x tick rate leaves headroom for input bursts
		IntentBurst:     90,
		MaxQueuedIntent: 256,
		MaxProjectiles:  64,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if ms := getEnvInt("STALE_WINDOW_MS", 0); ms > 0 {
		cfg.StaleWindow = time.Duration(ms) * time.Millisecond
	}
	if ips := getEnvFloat("INTENTS_PER_SEC", 0); ips > 0 {
		cfg.IntentsPerSec = ips
	}

	return cfg
}

// =============================================================================
// ROUND CONFIGURATION
// =============================================================================

// RoundConfig controls the best-of-N round structure of a match.
type RoundConfig struct {
	MaxRounds            int           // Best-of-N, must be 3 or 5
	RoundDuration        time.Duration // Normal round length
	IntermissionDuration time.Duration // Pause between rounds
	CountdownDuration    time.Duration // Pre-round countdown
	SuddenDeathDuration  time.Duration // Overtime after round timer expires
	EndingDuration       time.Duration // Round result display window
}

// DefaultRounds returns the default round configuration.
func DefaultRounds() RoundConfig {
	return RoundConfig{
		MaxRounds:            3,
		RoundDuration:        90 * time.Second,
		IntermissionDuration: 10 * time.Second,
		CountdownDuration:    3 * time.Second,
		SuddenDeathDuration:  30 * time.Second,
		EndingDuration:       4 * time.Second,
	}
}

// RoundsFromEnv returns round configuration with environment overrides.
func RoundsFromEnv() RoundConfig {
	cfg := DefaultRounds()

	if mr := getEnvInt("MAX_ROUNDS", 0); mr > 0 {
		cfg.MaxRounds = mr
	}
	if s := getEnvInt("ROUND_DURATION_SEC", 0); s > 0 {
		cfg.RoundDuration = time.Duration(s) * time.Second
	}
	if s := getEnvInt("INTERMISSION_SEC", 0); s > 0 {
		cfg.IntermissionDuration = time.Duration(s) * time.Second
	}
	if s := getEnvInt("SUDDEN_DEATH_SEC", 0); s > 0 {
		cfg.SuddenDeathDuration = time.Duration(s) * time.Second
	}

	return cfg
}

// Validate rejects round configurations the match lifecycle cannot support.
func (c RoundConfig) Validate() error {
	if c.MaxRounds != 3 && c.MaxRounds != 5 {
		return fmt.Errorf("maxRounds must be 3 or 5, got %d", c.MaxRounds)
	}
	if c.RoundDuration <= 0 {
		return fmt.Errorf("roundDuration must be positive, got %s", c.RoundDuration)
	}
	if c.SuddenDeathDuration <= 0 {
		return fmt.Errorf("suddenDeathDuration must be positive, got %s", c.SuddenDeathDuration)
	}
	return nil
}

// =============================================================================
// CONNECTION POLICY CONFIGURATION
// =============================================================================

// ConnConfig controls heartbeat monitoring behavior.
type ConnConfig struct {
	BaseConnectionTimeout                time.Duration // Heartbeat timeout during active play
	BaseGracePeriod                      time.Duration // Extra tolerance before declaring disconnect
	DisableHeartbeatDuringCriticalStates bool
	ReconnectWindow                      time.Duration // How long a severed player may rejoin before forfeiting
}

// DefaultConn returns the default connection policy configuration.
func DefaultConn() ConnConfig {
	return ConnConfig{
		BaseConnectionTimeout:                10 * time.Second,
		BaseGracePeriod:                      5 * time.Second,
		DisableHeartbeatDuringCriticalStates: true,
		ReconnectWindow:                      30 * time.Second,
	}
}

// ConnFromEnv returns connection policy configuration with environment overrides.
func ConnFromEnv() ConnConfig {
	cfg := DefaultConn()

	if s := getEnvInt("CONNECTION_TIMEOUT_SEC", 0); s > 0 {
		cfg.BaseConnectionTimeout = time.Duration(s) * time.Second
	}
	if s := getEnvInt("GRACE_PERIOD_SEC", 0); s > 0 {
		cfg.BaseGracePeriod = time.Duration(s) * time.Second
	}
	if os.Getenv("DISABLE_HEARTBEAT_CRITICAL") == "false" {
		cfg.DisableHeartbeatDuringCriticalStates = false
	}
	if s := getEnvInt("RECONNECT_WINDOW_SEC", 0); s > 0 {
		cfg.ReconnectWindow = time.Duration(s) * time.Second
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int
	MaxMatches int // Hard cap on concurrent matches
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       3000,
		MaxMatches: 500,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mm := getEnvInt("MAX_MATCHES", 0); mm > 0 {
		cfg.MaxMatches = mm
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim    SimConfig
	Rounds RoundConfig
	Conn   ConnConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:    SimFromEnv(),
		Rounds: RoundsFromEnv(),
		Conn:   ConnFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
