package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rtls-go-server/internal/alerting"
	"rtls-go-server/internal/api"
	"rtls-go-server/internal/auth"
	"rtls-go-server/internal/config"
	"rtls-go-server/internal/evaluator"
	"rtls-go-server/internal/history"
	"rtls-go-server/internal/pipeline"
	"rtls-go-server/internal/registry"
	"rtls-go-server/internal/settings"
	"rtls-go-server/internal/simulator"
	"rtls-go-server/internal/stats"
	"rtls-go-server/internal/websocket"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cfg := &config.AppConfig

	// --- Initialize components ---
	devices := registry.NewDeviceRegistry()
	fences := registry.NewGeofenceRegistry()
	settingsStore := settings.NewStore(cfg.Settings)
	hub := websocket.NewHub()
	engine := alerting.NewEngine(hub)
	tempHistory := history.NewBuffer(0)

	evalCfg := evaluator.Config{
		WarningMargin:       cfg.Evaluator.WarningMargin,
		LowBatteryThreshold: cfg.Evaluator.LowBatteryThreshold,
		OfflineAfter:        time.Duration(cfg.Evaluator.OfflineAfter) * time.Second,
	}
	pipe := pipeline.New(devices, fences, engine, tempHistory, evalCfg)

	if cfg.Demo {
		seedDemoFleet(devices, fences)
	}

	authManager := auth.NewManager(cfg)
	facade := stats.NewFacade(devices, engine, tempHistory)
	handler := api.NewHandler(devices, fences, engine, pipe, facade, settingsStore, hub, authManager)

	go hub.Run()

	// --- Simulator ---
	simCtx, stopSim := context.WithCancel(context.Background())
	sim := simulator.New(simulator.Config{
		Perturb:            cfg.Simulator.Enabled,
		MinTemperature:     cfg.Simulator.MinTemperature,
		MaxTemperature:     cfg.Simulator.MaxTemperature,
		MaxStep:            cfg.Simulator.MaxStep,
		BatteryDecayChance: cfg.Simulator.BatteryDecayChance,
	}, devices, pipe, engine, settingsStore, hub)
	go sim.Run(simCtx)

	// --- HTTP servers ---
	ingestServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.IngestPort),
		Handler: api.SetupIngestRouter(handler),
	}
	consoleServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.ConsolePort),
		Handler: api.SetupConsoleRouter(handler),
	}

	go func() {
		log.Printf("Starting telemetry ingest server on port %d", cfg.Server.IngestPort)
		if err := ingestServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Ingest server error: %v", err)
		}
	}()

	go func() {
		log.Printf("Starting console API server on port %d", cfg.Server.ConsolePort)
		if err := consoleServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Console server error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	stopSim()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ingestServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ingest server shutdown error: %v", err)
	}
	if err := consoleServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Console server shutdown error: %v", err)
	}

	log.Println("Servers gracefully stopped")
}
