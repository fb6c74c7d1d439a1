// Command thinker runs the signal-engine polling loop: for every coin listed
// in gui_settings.json it loads trained pattern memories, pulls current
// price/candle data, and publishes long/short signal files the trader reads.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/exchange/bybit"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/thinker"
)

func main() {
	var (
		dataRoot   = flag.String("data-root", "data", "Data root directory shared with trainer/trader")
		envFile    = flag.String("env", ".env", "Environment file path")
		healthAddr = flag.String("health-addr", ":9101", "Address to serve /healthz and /metrics on")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("warning: could not load %s, checking environment variables: %v\n", *envFile, err)
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   os.Getenv("BYBIT_TESTNET") == "true",
	})
	venue := exchange.NewLiveVenue(client, 10, 5)

	log, err := logger.New("thinker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	health := monitoring.NewHealthMonitor()
	go serveHealth(*healthAddr, health, log)

	runner := thinker.NewRunner(venue, *dataRoot, log, health)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		runner.Stop()
		cancel()
	}()

	log.Info("thinker starting under %s", *dataRoot)
	runner.Run(ctx)
	log.Info("thinker stopped")
}

func serveHealth(addr string, health *monitoring.HealthMonitor, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.LogError("health server", err)
	}
}
