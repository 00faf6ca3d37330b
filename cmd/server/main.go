package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"arena-duel/internal/api"
	"arena-duel/internal/config"
	"arena-duel/internal/connpolicy"
	"arena-duel/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	}

	log.Println("================================")
	log.Println(" ARENA DUEL - MATCH SERVER")
	log.Println("================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	simCfg := appConfig.Sim
	roundCfg := appConfig.Rounds
	connCfg := appConfig.Conn
	serverCfg := appConfig.Server

	if err := roundCfg.Validate(); err != nil {
		log.Fatalf("invalid round configuration: %v", err)
	}

	log.Printf("config: %d TPS, best-of-%d, %s rounds, %d match cap",
		simCfg.TickRate, roundCfg.MaxRounds, roundCfg.RoundDuration, serverCfg.MaxMatches)

	// Event log (JSONL, async, rate limited)
	eventLog := game.NewEventLog()
	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	if err := eventLog.Start(eventLogPath); err != nil {
		log.Printf("event log disabled: %v", err)
	} else {
		log.Printf("event log: %s", eventLogPath)
	}

	// Connection policy coordinator
	coordinator := connpolicy.NewCoordinator(connpolicy.Config{
		BaseConnectionTimeout:                connCfg.BaseConnectionTimeout,
		BaseGracePeriod:                      connCfg.BaseGracePeriod,
		DisableHeartbeatDuringCriticalStates: connCfg.DisableHeartbeatDuringCriticalStates,
	})

	// Match registry: every event goes to the JSONL log and the metrics
	// counters; round-state changes feed the coordinator.
	registry := game.NewRegistry(game.RegistryDeps{
		Sim:           simCfg,
		Rounds:        roundCfg,
		MaxMatches:    serverCfg.MaxMatches,
		Events:        game.MultiSink{eventLog, api.MetricsSink{}},
		Listener:      coordinator,
		OnTick:        api.RecordTick,
		OnCountChange: api.UpdateActiveMatches,
	})

	// Debug server (pprof + Prometheus, localhost only)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	// API server; the hub is the broadcaster for every match, so the
	// registry is wired to it before any match can be created.
	server := api.NewServer(registry, coordinator, connCfg.ReconnectWindow)
	registry.SetBroadcaster(server.Hub())

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received %s, shutting down", sig)
		registry.Shutdown()
		server.Stop()
		eventLog.Stop()
		log.Printf("event log final counters: %v", eventLog.GetStats())
		os.Exit(0)
	}()

	addr := ":" + strconv.Itoa(serverCfg.Port)
	if err := server.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnvWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
