// Package main runs the trace layer server: the in-memory supply chain
// ledger with its REST API, websocket state stream, and metrics endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/runtime"
	"github.com/PolkaTrace/trace_layer/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default config/traced.yaml)")
	port := flag.Int("port", 0, "Override the listen port")
	simulate := flag.Bool("simulate", false, "Enable the traffic simulator")
	fast := flag.Bool("fast", false, "Disable simulated transaction latency")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFromPath(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *simulate {
		cfg.Simulator.Enabled = true
	}
	if *fast {
		cfg.Latency = latency.None()
	}

	application, err := runtime.NewApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	cancel()
	if err := application.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[traced] ")
}
