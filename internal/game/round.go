package game

import (
	"time"

	"arena-duel/internal/config"
)

// RoundState is one lifecycle state of a match's round machine.
type RoundState string

const (
	RoundWaiting      RoundState = "waiting"
	RoundIntermission RoundState = "intermission"
	RoundStarting     RoundState = "starting"
	RoundActive       RoundState = "active"
	RoundSuddenDeath  RoundState = "sudden_death"
	RoundEnding       RoundState = "ending"
	RoundCompleted    RoundState = "completed"
)

// Round end reasons recorded in round results and match summaries.
const (
	EndReasonElimination = "elimination"
	EndReasonTimeoutDraw = "timeout_draw"
	EndReasonForfeit     = "forfeit"
	EndReasonDisconnect  = "disconnect"
	EndReasonScore       = "score_threshold"
	EndReasonExhausted   = "rounds_exhausted"
)

// RoundResult records the outcome of one finished round.
type RoundResult struct {
	Round    int           `json:"round"`
	WinnerID string        `json:"winnerId,omitempty"` // empty = draw
	Reason   string        `json:"reason"`
	Duration time.Duration `json:"duration"`
}

// MatchSummary is emitted to the persistence collaborator on match end.
type MatchSummary struct {
	MatchID         string         `json:"matchId"`
	WinnerID        string         `json:"winnerId,omitempty"` // empty = tie
	FinalScore      map[string]int `json:"finalScore"`
	PerRoundResults []RoundResult  `json:"perRoundResults"`
	TotalDuration   time.Duration  `json:"totalDuration"`
	EndReason       string         `json:"endReason"`
}

// roundObserver receives lifecycle notifications from the round machine.
// All callbacks run on the single-writer tick path of the owning match.
type roundObserver interface {
	// roundCountdown fires on entering starting; the simulation resets
	// players and clears projectiles here.
	roundCountdown(round int)
	// roundStarted fires on entering active.
	roundStarted(round int)
	// roundEnded fires on entering ending.
	roundEnded(result RoundResult)
	// stateChanged fires on every transition, after the specific callback.
	stateChanged(state RoundState)
	// matchCompleted fires exactly once, on entering completed.
	matchCompleted(summary MatchSummary)
}

// RoundMachine governs one match's best-of-N lifecycle. All timers are
// deadlines evaluated inside Advance, so transitions are deterministic and
// replayable without wall-clock waits. The machine is only ever driven from
// its match's tick, so it needs no locking.
type RoundMachine struct {
	cfg      config.RoundConfig
	matchID  string
	p1, p2   string
	observer roundObserver

	state      RoundState
	round      int
	score      map[string]int
	results    []RoundResult
	matchStart time.Time
	roundStart time.Time
	deadline   time.Time

	winnerID  string
	endReason string
}

// NewRoundMachine builds a machine in the waiting state.
func NewRoundMachine(matchID, p1, p2 string, cfg config.RoundConfig, obs roundObserver) *RoundMachine {
	return &RoundMachine{
		cfg:      cfg,
		matchID:  matchID,
		p1:       p1,
		p2:       p2,
		observer: obs,
		state:    RoundWaiting,
		score:    map[string]int{p1: 0, p2: 0},
	}
}

// State returns the current lifecycle state.
func (m *RoundMachine) State() RoundState { return m.state }

// Round returns the current round number (0 before the match starts).
func (m *RoundMachine) Round() int { return m.round }

// Completed reports whether the machine reached its terminal state.
func (m *RoundMachine) Completed() bool { return m.state == RoundCompleted }

// WinnerID returns the match winner once completed; empty means tie or not
// yet decided.
func (m *RoundMachine) WinnerID() string { return m.winnerID }

// EndReason returns why the match completed.
func (m *RoundMachine) EndReason() string { return m.endReason }

// Score returns a copy of the cumulative per-player score.
func (m *RoundMachine) Score() map[string]int {
	return map[string]int{m.p1: m.score[m.p1], m.p2: m.score[m.p2]}
}

// Results returns the recorded per-round results.
func (m *RoundMachine) Results() []RoundResult {
	out := make([]RoundResult, len(m.results))
	copy(out, m.results)
	return out
}

// WinThreshold is the score that decides the match: ceil(maxRounds/2).
func (m *RoundMachine) WinThreshold() int {
	return (m.cfg.MaxRounds + 1) / 2
}

// TimeLeft returns the remaining time in the current timed state.
func (m *RoundMachine) TimeLeft(now time.Time) time.Duration {
	if m.deadline.IsZero() || m.state == RoundCompleted || m.state == RoundWaiting {
		return 0
	}
	left := m.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// CombatActive reports whether damage and movement resolve in the current
// state.
func (m *RoundMachine) CombatActive() bool {
	return m.state == RoundActive || m.state == RoundSuddenDeath
}

// Start moves waiting into the first round's countdown. The intermission is
// skipped on round 1; there is nothing to rest from.
func (m *RoundMachine) Start(now time.Time) {
	if m.state != RoundWaiting {
		return
	}
	m.matchStart = now
	m.beginCountdown(now)
}

// Advance evaluates all deadline-driven transitions at the given time. The
// single entry point keeps transitions replayable in tests; a call after
// completion is a guarded no-op.
func (m *RoundMachine) Advance(now time.Time) {
	if m.state == RoundCompleted {
		return
	}

	switch m.state {
	case RoundIntermission:
		if !now.Before(m.deadline) {
			m.beginCountdown(now)
		}
	case RoundStarting:
		if !now.Before(m.deadline) {
			m.state = RoundActive
			m.roundStart = now
			m.deadline = now.Add(m.cfg.RoundDuration)
			m.observer.roundStarted(m.round)
			m.observer.stateChanged(m.state)
		}
	case RoundActive:
		if !now.Before(m.deadline) {
			// Both players still alive at the buzzer: overtime, not an
			// immediate draw.
			m.state = RoundSuddenDeath
			m.deadline = now.Add(m.cfg.SuddenDeathDuration)
			m.observer.stateChanged(m.state)
		}
	case RoundSuddenDeath:
		if !now.Before(m.deadline) {
			// Sudden-death timeout is a draw: no winner, no score change.
			m.endRound("", EndReasonTimeoutDraw, now)
		}
	case RoundEnding:
		if !now.Before(m.deadline) {
			m.afterEnding(now)
		}
	}
}

// PlayerEliminated ends the current round in the opponent's favor. Ignored
// outside combat states; a death during ending display must not double-end
// the round.
func (m *RoundMachine) PlayerEliminated(victimID string, now time.Time) {
	if !m.CombatActive() {
		return
	}
	m.endRound(m.opponent(victimID), EndReasonElimination, now)
}

// Forfeit short-circuits the match from any non-terminal state, awarding
// the opponent the minimum rounds needed to win.
func (m *RoundMachine) Forfeit(playerID string, now time.Time) {
	m.shortCircuit(playerID, EndReasonForfeit, now)
}

// HandleDisconnect is the disconnect-timeout variant of Forfeit.
func (m *RoundMachine) HandleDisconnect(playerID string, now time.Time) {
	m.shortCircuit(playerID, EndReasonDisconnect, now)
}

func (m *RoundMachine) shortCircuit(playerID, reason string, now time.Time) {
	if m.state == RoundCompleted {
		return
	}
	winner := m.opponent(playerID)
	m.score[winner] = m.WinThreshold()
	m.complete(winner, reason, now)
}

func (m *RoundMachine) beginCountdown(now time.Time) {
	m.round++
	m.state = RoundStarting
	m.deadline = now.Add(m.cfg.CountdownDuration)
	m.observer.roundCountdown(m.round)
	m.observer.stateChanged(m.state)
}

func (m *RoundMachine) endRound(winnerID, reason string, now time.Time) {
	if winnerID != "" {
		m.score[winnerID]++
	}
	result := RoundResult{
		Round:    m.round,
		WinnerID: winnerID,
		Reason:   reason,
		Duration: now.Sub(m.roundStart),
	}
	m.results = append(m.results, result)
	m.state = RoundEnding
	m.deadline = now.Add(m.cfg.EndingDuration)
	m.observer.roundEnded(result)
	m.observer.stateChanged(m.state)
}

// afterEnding decides between the next intermission and match completion.
func (m *RoundMachine) afterEnding(now time.Time) {
	threshold := m.WinThreshold()
	if m.score[m.p1] >= threshold {
		m.complete(m.p1, EndReasonScore, now)
		return
	}
	if m.score[m.p2] >= threshold {
		m.complete(m.p2, EndReasonScore, now)
		return
	}
	if m.round >= m.cfg.MaxRounds {
		// Rounds exhausted without a threshold win: raw score comparison,
		// tie possible.
		winner := ""
		if m.score[m.p1] > m.score[m.p2] {
			winner = m.p1
		} else if m.score[m.p2] > m.score[m.p1] {
			winner = m.p2
		}
		m.complete(winner, EndReasonExhausted, now)
		return
	}
	m.state = RoundIntermission
	m.deadline = now.Add(m.cfg.IntermissionDuration)
	m.observer.stateChanged(m.state)
}

func (m *RoundMachine) complete(winnerID, reason string, now time.Time) {
	m.state = RoundCompleted
	m.winnerID = winnerID
	m.endReason = reason
	m.deadline = time.Time{}
	summary := MatchSummary{
		MatchID:         m.matchID,
		WinnerID:        winnerID,
		FinalScore:      m.Score(),
		PerRoundResults: m.Results(),
		TotalDuration:   now.Sub(m.matchStart),
		EndReason:       reason,
	}
	m.observer.stateChanged(m.state)
	m.observer.matchCompleted(summary)
}

func (m *RoundMachine) opponent(playerID string) string {
	if playerID == m.p1 {
		return m.p2
	}
	return m.p1
}
