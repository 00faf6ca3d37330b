package api

import "arena-duel/internal/game"

// MetricsSink is a game.EventSink that feeds the Prometheus counters.
// Compose it with the JSONL event log via game.MultiSink so every match
// event is both persisted and counted.
type MetricsSink struct{}

func (MetricsSink) Emit(e game.Event) {
	RecordEventLogged()

	switch e.Type {
	case game.EventIntentRejected:
		if p, ok := e.Payload.(game.RejectPayload); ok {
			if p.Reason == game.RejectStale {
				RecordStaleIntent()
				return
			}
			RecordIntentRejected(p.Reason)
		}
	}
}
