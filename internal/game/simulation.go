package game

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"arena-duel/internal/config"
	"arena-duel/internal/delta"
)

// Broadcaster delivers deltas and discrete events to connected clients.
// Implementations must not block; network sends are fire-and-forget from
// the simulation's point of view.
type Broadcaster interface {
	BroadcastDelta(matchID string, d *delta.Delta)
	BroadcastEvent(matchID string, event EventType, payload any)
	SendToPlayer(playerID string, event EventType, payload any)
}

// NopBroadcaster discards all broadcasts. Used in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastDelta(string, *delta.Delta)         {}
func (NopBroadcaster) BroadcastEvent(string, EventType, any)       {}
func (NopBroadcaster) SendToPlayer(string, EventType, any)         {}

// StateListener is notified of round-state changes so the connection policy
// layer can track the active policy per match. The coordinator in
// internal/connpolicy satisfies this directly.
type StateListener interface {
	UpdateMatchState(matchID, state string)
	Suspend(matchID string, until time.Time)
	RemoveMatch(matchID string)
}

// NopListener discards state notifications. Used in tests.
type NopListener struct{}

func (NopListener) UpdateMatchState(string, string) {}
func (NopListener) Suspend(string, time.Time)       {}
func (NopListener) RemoveMatch(string)              {}

type commandKind int

const (
	cmdIntent commandKind = iota
	cmdForfeit
	cmdDisconnect
	cmdResync
)

// command is one queued external write. All external mutation (intents,
// forfeits, disconnect notices, resync requests) goes through the queue and
// is drained synchronously at the start of the owning match's next tick;
// nothing is applied in place from the calling context.
type command struct {
	kind       commandKind
	playerID   string
	intent     Intent
	receivedAt time.Time
}

// MatchDeps bundles the collaborators injected into every match.
type MatchDeps struct {
	Sim         config.SimConfig
	Rounds      config.RoundConfig
	Events      EventSink
	Broadcaster Broadcaster
	Listener    StateListener

	// OnTick observes per-tick wall time, for metrics. Optional.
	OnTick func(time.Duration)
}

// MatchStatus is an immutable read model of one match, published by the
// tick after every step. Concurrent readers (HTTP handlers, diagnostics)
// load the latest copy instead of touching live simulation state. The
// contents, score map included, are read-only.
type MatchStatus struct {
	State       RoundState     `json:"state"`
	Round       int            `json:"round"`
	Score       map[string]int `json:"score"`
	TimeLeft    time.Duration  `json:"timeLeft"`
	WinnerID    string         `json:"winnerId,omitempty"`
	EndReason   string         `json:"endReason,omitempty"`
	Projectiles int            `json:"projectiles"`
	Tick        uint64         `json:"tick"`
}

// Completed reports whether the match reached its terminal state.
func (s *MatchStatus) Completed() bool { return s.State == RoundCompleted }

// Match owns the authoritative state of one 1v1 duel: two players, live
// projectiles, the arena and the round machine. State is only mutated by
// the match's own tick (single writer), so player/projectile access needs
// no locks; the mutex guards the command queue alone. Everything outside
// the tick reads through the published MatchStatus.
type Match struct {
	ID    string
	arena Arena

	simCfg   config.SimConfig
	roundCfg config.RoundConfig

	players     map[string]*Player
	order       [2]string
	projectiles []*Projectile
	rounds      *RoundMachine
	sync        *delta.Synchronizer

	events      EventSink
	broadcaster Broadcaster
	listener    StateListener

	mu       sync.Mutex
	queue    []command
	overflow uint64 // commands dropped on queue cap

	tick       uint64
	now        time.Time // current tick time, valid inside Tick
	staleCount uint64

	status atomic.Pointer[MatchStatus]

	running  bool
	runMu    sync.Mutex
	ticker   *time.Ticker
	stopChan chan struct{}

	projSeq    uint64
	onComplete func(matchID string)
	onTick     func(time.Duration)
}

// NewMatch initializes a match for two paired players. Unknown arena or
// class aborts creation; no partial match is left behind.
func NewMatch(id string, playerIDs, classIDs [2]string, arenaID string, deps MatchDeps) (*Match, error) {
	arena, ok := GetArena(arenaID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrArenaNotFound, arenaID)
	}
	if err := deps.Rounds.Validate(); err != nil {
		return nil, err
	}

	m := &Match{
		ID:          id,
		arena:       arena,
		simCfg:      deps.Sim,
		roundCfg:    deps.Rounds,
		players:     make(map[string]*Player, 2),
		order:       playerIDs,
		sync:        delta.NewSynchronizer(),
		events:      deps.Events,
		broadcaster: deps.Broadcaster,
		listener:    deps.Listener,
		onTick:      deps.OnTick,
		stopChan:    make(chan struct{}),
	}
	if m.events == nil {
		m.events = NopSink{}
	}
	if m.broadcaster == nil {
		m.broadcaster = NopBroadcaster{}
	}
	if m.listener == nil {
		m.listener = NopListener{}
	}

	for idx, pid := range playerIDs {
		p, err := NewPlayer(pid, pid, classIDs[idx], deps.Sim.IntentsPerSec, deps.Sim.IntentBurst)
		if err != nil {
			return nil, err
		}
		p.ResetForRound(arena.Spawns[idx])
		m.players[pid] = p
	}

	m.rounds = NewRoundMachine(id, playerIDs[0], playerIDs[1], deps.Rounds, m)
	m.publishStatus()
	m.listener.UpdateMatchState(id, string(RoundWaiting))
	return m, nil
}

// SetOnComplete installs the completion hook invoked (on its own goroutine)
// when the match reaches its terminal state. The registry uses it to tear
// the match down.
func (m *Match) SetOnComplete(fn func(matchID string)) {
	m.onComplete = fn
}

// Start begins the fixed-rate tick loop on its own goroutine.
func (m *Match) Start() {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return
	}
	m.running = true
	m.runMu.Unlock()

	m.ticker = time.NewTicker(time.Second / time.Duration(m.simCfg.TickRate))

	go func() {
		for {
			select {
			case now := <-m.ticker.C:
				m.Tick(now)
			case <-m.stopChan:
				return
			}
		}
	}()

	log.Printf("match %s started at %d TPS in arena %s", m.ID, m.simCfg.TickRate, m.arena.ID)
}

// Stop halts the tick loop. Safe to call more than once.
func (m *Match) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.stopChan)
	log.Printf("match %s stopped", m.ID)
}

// SubmitIntent queues a client intent for the next tick. Over-cap intents
// are dropped; backpressure, not blocking.
func (m *Match) SubmitIntent(it Intent) {
	m.enqueue(command{kind: cmdIntent, playerID: it.PlayerID, intent: it, receivedAt: time.Now()})
}

// Forfeit queues a voluntary forfeit. Applied on the next tick.
func (m *Match) Forfeit(playerID string) {
	m.enqueue(command{kind: cmdForfeit, playerID: playerID, receivedAt: time.Now()})
}

// NotifyDisconnect queues a disconnect-timeout notice from the transport.
func (m *Match) NotifyDisconnect(playerID string) {
	m.enqueue(command{kind: cmdDisconnect, playerID: playerID, receivedAt: time.Now()})
}

// RequestResync forces the next broadcast to be a full snapshot.
func (m *Match) RequestResync(playerID string) {
	m.enqueue(command{kind: cmdResync, playerID: playerID, receivedAt: time.Now()})
}

func (m *Match) enqueue(cmd command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) >= m.simCfg.MaxQueuedIntent {
		m.overflow++
		return
	}
	m.queue = append(m.queue, cmd)
}

func (m *Match) drain() []command {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmds := m.queue
	m.queue = make([]command, 0, len(cmds))
	return cmds
}

// Tick advances the match by one fixed step. Exported so tests can drive
// the simulation deterministically with synthetic clocks; the production
// loop calls it from the ticker goroutine.
func (m *Match) Tick(now time.Time) {
	if m.rounds.Completed() {
		// Timers and late ticker fires after completion are guarded no-ops.
		return
	}
	if m.onTick != nil {
		start := time.Now()
		defer func() { m.onTick(time.Since(start)) }()
	}

	m.tick++
	m.now = now
	dt := 1.0 / float64(m.simCfg.TickRate)

	if m.rounds.State() == RoundWaiting {
		m.rounds.Start(now)
	}

	// Phase 0: drain external writes; lifecycle commands first so a forfeit
	// queued before an attack wins.
	cmds := m.drain()
	for _, cmd := range cmds {
		switch cmd.kind {
		case cmdForfeit:
			m.rounds.Forfeit(cmd.playerID, now)
		case cmdDisconnect:
			m.rounds.HandleDisconnect(cmd.playerID, now)
		case cmdResync:
			m.sync.Reset()
		}
	}
	if m.rounds.Completed() {
		m.publishStatus()
		m.broadcastState()
		return
	}

	// Phase 1: movement intents.
	for _, cmd := range cmds {
		if cmd.kind == cmdIntent && cmd.intent.Type == IntentMove {
			m.applyMove(cmd.intent, dt)
		}
	}

	// Phase 2: attack and ability intents.
	for _, cmd := range cmds {
		if cmd.kind != cmdIntent {
			continue
		}
		switch cmd.intent.Type {
		case IntentAttack:
			m.applyAttack(cmd.intent)
		case IntentUseAbility:
			m.applyAbility(cmd.intent)
		case IntentMove:
			// handled in phase 1
		default:
			m.reject(cmd.intent, RejectMalformed)
		}
	}

	// Phase 3: advance projectiles, resolve wall and player collisions.
	m.advanceProjectiles(dt)

	// Phase 4: expire timed buffs and cooldowns.
	for _, pid := range m.order {
		p := m.players[pid]
		p.CoolDown(dt)
		p.ExpireBuffs(now)
	}

	// Phase 5: evaluate round win conditions and timers.
	m.rounds.Advance(now)

	m.publishStatus()
	m.broadcastState()
}

func (m *Match) validateCommon(it Intent) (*Player, bool) {
	p, ok := m.players[it.PlayerID]
	if !ok {
		m.reject(it, RejectUnknownPlayer)
		return nil, false
	}
	if it.ClientTimestamp > 0 {
		age := m.now.UnixMilli() - it.ClientTimestamp
		if age > m.simCfg.StaleWindow.Milliseconds() {
			// Stale intents are discarded silently; frequent occurrence is
			// a transport problem, tracked as a metric, not a fault.
			m.staleCount++
			m.events.Emit(m.event(EventIntentRejected, it.PlayerID, RejectPayload{Reason: RejectStale, IntentType: it.Type}))
			return nil, false
		}
	}
	if !p.limiter.Allow() {
		m.reject(it, RejectRateLimited)
		return nil, false
	}
	if !m.rounds.CombatActive() {
		m.reject(it, RejectRoundInactive)
		return nil, false
	}
	if !p.Alive {
		m.reject(it, RejectDead)
		return nil, false
	}
	return p, true
}

func (m *Match) applyMove(it Intent, dt float64) {
	p, ok := m.validateCommon(it)
	if !ok {
		return
	}
	if it.SequenceID != 0 {
		if it.SequenceID <= p.lastSeq {
			m.reject(it, RejectOutOfSequence)
			return
		}
		p.lastSeq = it.SequenceID
	}

	dx, dy := it.DX, it.DY
	length := math.Hypot(dx, dy)
	if length > 1 {
		dx /= length
		dy /= length
	}

	speed := p.MoveSpeed(m.now)
	p.VX = dx * speed
	p.VY = dy * speed
	p.Angle = it.Angle

	nx := p.X + p.VX*dt
	ny := p.Y + p.VY*dt
	p.X, p.Y = m.arena.MoveCircle(p.X, p.Y, nx, ny, PlayerRadius)
}

func (m *Match) applyAttack(it Intent) {
	p, ok := m.validateCommon(it)
	if !ok {
		return
	}
	if p.AttackCooldown > 0 {
		m.reject(it, RejectOnCooldown)
		return
	}

	class := p.Class()
	p.AttackCooldown = class.AttackCooldown
	p.Angle = math.Atan2(it.TargetY-p.Y, it.TargetX-p.X)

	if class.Ranged() {
		m.spawnProjectile(p, class, it.TargetX, it.TargetY)
		return
	}

	// Instant melee: area resolution against players inside the weapon arc.
	for _, pid := range m.order {
		target := m.players[pid]
		if target.ID == p.ID || !target.Alive {
			continue
		}
		if InMeleeArc(p.X, p.Y, target.X, target.Y, p.Angle, class.AttackRange+PlayerRadius, class.AttackArc) {
			m.applyDamage(p, target, class.Damage, class.ArmorPen, "melee")
		}
	}
}

func (m *Match) spawnProjectile(p *Player, class Class, aimX, aimY float64) {
	if len(m.projectiles) >= m.simCfg.MaxProjectiles {
		return
	}
	spec, ok := ProjectileSpecs[class.ProjectileType]
	if !ok {
		return
	}
	m.projSeq++
	proj := newProjectile(p, spec, aimX, aimY, m.opponentOf(p.ID), m.tick, m.projSeq)
	m.projectiles = append(m.projectiles, proj)
}

func (m *Match) applyAbility(it Intent) {
	p, ok := m.validateCommon(it)
	if !ok {
		return
	}
	class := p.Class()
	if it.AbilityID != class.AbilityID {
		m.reject(it, RejectUnknownAbility)
		return
	}
	ability, ok := GetAbility(it.AbilityID)
	if !ok {
		m.reject(it, RejectUnknownAbility)
		return
	}
	if p.AbilityCooldown > 0 {
		m.reject(it, RejectOnCooldown)
		return
	}

	p.AbilityCooldown = ability.Cooldown

	switch ability.Kind {
	case AbilityDash:
		nx := p.X + math.Cos(p.Angle)*ability.Magnitude
		ny := p.Y + math.Sin(p.Angle)*ability.Magnitude
		p.X, p.Y = m.arena.MoveCircle(p.X, p.Y, nx, ny, PlayerRadius)
	case AbilityHeal:
		p.Heal(int(ability.Magnitude))
	case AbilityBuff:
		p.AddBuff(Buff{
			Type:      ability.Buff,
			Magnitude: ability.Magnitude,
			ExpiresAt: m.now.Add(time.Duration(ability.Duration * float64(time.Second))),
		})
	}
}

func (m *Match) advanceProjectiles(dt float64) {
	n := 0
	for _, proj := range m.projectiles {
		var target *Player
		if proj.Homing && proj.TargetID != "" {
			target = m.players[proj.TargetID]
		}

		alive := proj.advance(dt, target)

		// Wall or bounds collision destroys the projectile.
		if alive {
			if !m.arena.Contains(proj.X, proj.Y) || m.arena.CircleHitsWall(proj.X, proj.Y, ProjectileRadius) {
				alive = false
			}
		}

		if alive {
			for _, pid := range m.order {
				victim := m.players[pid]
				if !proj.checkHit(victim) {
					continue
				}
				if attacker, ok := m.players[proj.OwnerID]; ok {
					m.applyDamage(attacker, victim, proj.Damage, proj.ArmorPen, proj.Type)
				}
				if proj.Piercing {
					proj.markHit(victim.ID)
					continue
				}
				alive = false
				break
			}
		}

		if alive {
			m.projectiles[n] = proj
			n++
		}
	}
	m.projectiles = m.projectiles[:n]
}

func (m *Match) applyDamage(attacker, victim *Player, raw int, armorPen float64, source string) {
	if !m.rounds.CombatActive() {
		return
	}
	dealt := victim.TakeDamage(raw, armorPen, m.now)
	if dealt <= 0 {
		return
	}

	m.events.Emit(m.event(EventDamageDealt, attacker.ID, DamagePayload{
		AttackerID:   attacker.ID,
		VictimID:     victim.ID,
		Damage:       dealt,
		VictimHealth: victim.Health,
		Source:       source,
	}))

	if !victim.Alive {
		m.events.Emit(m.event(EventPlayerDeath, victim.ID, DeathPayload{
			VictimID: victim.ID,
			KillerID: attacker.ID,
			Round:    m.rounds.Round(),
		}))
		m.rounds.PlayerEliminated(victim.ID, m.now)
	}
}

func (m *Match) reject(it Intent, reason string) {
	payload := RejectPayload{Reason: reason, IntentType: it.Type}
	m.events.Emit(m.event(EventIntentRejected, it.PlayerID, payload))
	m.broadcaster.SendToPlayer(it.PlayerID, EventIntentRejected, payload)
}

func (m *Match) event(t EventType, actorID string, payload any) Event {
	return Event{
		Type:      t,
		MatchID:   m.ID,
		Tick:      m.tick,
		Timestamp: m.now.UnixMilli(),
		ActorID:   actorID,
		Payload:   payload,
	}
}

func (m *Match) opponentOf(playerID string) string {
	if playerID == m.order[0] {
		return m.order[1]
	}
	return m.order[0]
}

// broadcastState diffs the post-tick state and ships the delta.
func (m *Match) broadcastState() {
	d := m.sync.Generate(m.snapshot())
	m.broadcaster.BroadcastDelta(m.ID, d)
}

// snapshot builds the full post-tick state handed to the synchronizer.
func (m *Match) snapshot() delta.State {
	s := delta.State{
		Tick:       m.tick,
		ServerTime: uint64(m.now.UnixMilli()),
		Players:    make([]delta.PlayerState, 0, len(m.order)),
		Round: delta.RoundInfo{
			CurrentRound: m.rounds.Round(),
			TimeLeft:     m.rounds.TimeLeft(m.now).Seconds(),
			Status:       string(m.rounds.State()),
			Score:        m.rounds.Score(),
		},
	}
	for _, pid := range m.order {
		p := m.players[pid]
		s.Players = append(s.Players, delta.PlayerState{
			ID:              p.ID,
			X:               p.X,
			Y:               p.Y,
			VX:              p.VX,
			VY:              p.VY,
			Angle:           p.Angle,
			Health:          p.Health,
			Armor:           p.Armor,
			Alive:           p.Alive,
			WeaponCooldown:  p.AttackCooldown,
			AbilityCooldown: p.AbilityCooldown,
		})
	}
	for _, proj := range m.projectiles {
		s.Projectiles = append(s.Projectiles, delta.ProjectileState{
			ID:         proj.ID,
			OwnerID:    proj.OwnerID,
			Type:       proj.Type,
			X:          proj.X,
			Y:          proj.Y,
			VX:         proj.VX,
			VY:         proj.VY,
			Angle:      proj.Angle,
			TimeToLive: proj.RemainingRange,
			Damage:     proj.Damage,
		})
	}
	return s
}

// publishStatus refreshes the read model. Only the tick path (and match
// construction) calls this, so stores never race each other.
func (m *Match) publishStatus() {
	m.status.Store(&MatchStatus{
		State:       m.rounds.State(),
		Round:       m.rounds.Round(),
		Score:       m.rounds.Score(),
		TimeLeft:    m.rounds.TimeLeft(m.now),
		WinnerID:    m.rounds.WinnerID(),
		EndReason:   m.rounds.EndReason(),
		Projectiles: len(m.projectiles),
		Tick:        m.tick,
	})
}

// Status returns the latest published read model. Safe to call from any
// goroutine while the tick loop runs; values are at most one tick stale.
func (m *Match) Status() *MatchStatus {
	return m.status.Load()
}

// Player returns a simulation player by id. Tick-path and synchronous
// test use only; concurrent readers go through Status.
func (m *Match) Player(id string) *Player {
	return m.players[id]
}

// Rounds exposes the round machine. Tick-path and synchronous test use
// only; concurrent readers go through Status.
func (m *Match) Rounds() *RoundMachine {
	return m.rounds
}

// ProjectileCount returns the number of live projectiles. Tick-path and
// synchronous test use only.
func (m *Match) ProjectileCount() int {
	return len(m.projectiles)
}

// StaleCount returns how many intents were dropped as stale.
func (m *Match) StaleCount() uint64 {
	return m.staleCount
}

// Arena returns the match's arena.
func (m *Match) Arena() Arena {
	return m.arena
}

// =============================================================================
// roundObserver implementation (single-writer tick path)
// =============================================================================

func (m *Match) roundCountdown(round int) {
	// New round: restore health/position/cooldowns and clear projectiles.
	for idx, pid := range m.order {
		m.players[pid].ResetForRound(m.arena.Spawns[idx])
	}
	m.projectiles = m.projectiles[:0]

	m.events.Emit(m.event(EventRoundStart, "", RoundStartPayload{Round: round, Countdown: true, ArenaID: m.arena.ID}))
}

func (m *Match) roundStarted(round int) {
	m.events.Emit(m.event(EventRoundStart, "", RoundStartPayload{Round: round, ArenaID: m.arena.ID}))
	m.broadcaster.BroadcastEvent(m.ID, EventRoundStart, RoundStartPayload{Round: round, ArenaID: m.arena.ID})
}

func (m *Match) roundEnded(result RoundResult) {
	payload := RoundEndPayload{Result: result, Score: m.rounds.Score()}
	m.events.Emit(m.event(EventRoundEnd, result.WinnerID, payload))
	m.broadcaster.BroadcastEvent(m.ID, EventRoundEnd, payload)
}

func (m *Match) stateChanged(state RoundState) {
	m.listener.UpdateMatchState(m.ID, string(state))
	if state == RoundEnding {
		// Clients go quiet right after a round-end broadcast; suppress
		// disconnect decisions for the transition window.
		m.listener.Suspend(m.ID, m.now.Add(m.roundCfg.EndingDuration))
	}
}

func (m *Match) matchCompleted(summary MatchSummary) {
	m.events.Emit(m.event(EventMatchEnd, summary.WinnerID, summary))
	m.broadcaster.BroadcastEvent(m.ID, EventMatchEnd, summary)

	log.Printf("match %s completed: winner=%q reason=%s score=%v",
		m.ID, summary.WinnerID, summary.EndReason, summary.FinalScore)

	if m.onComplete != nil {
		// Teardown stops this loop and evicts registry entries; it must not
		// run on the tick path.
		go m.onComplete(m.ID)
	}
}
