// Command trader runs the reconcile/exit/trailing/DCA/entry loop against
// either a live Bybit venue or, with --paper, an in-memory simulated venue
// priced off the same live market data feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibrahim3d/powertrader/internal/credentials"
	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/exchange/bybit"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/trader"
)

const paperStartingBalanceUSD = 10_000.0

func main() {
	var (
		dataRoot   = flag.String("data-root", "data", "Data root directory shared with trainer/thinker")
		paper      = flag.Bool("paper", false, "Run against an in-memory paper venue instead of live Bybit")
		healthAddr = flag.String("health-addr", ":9102", "Address to serve /healthz and /metrics on")
	)
	flag.Parse()

	creds := credentials.Load(*dataRoot, nil)
	if !*paper && !creds.IsValid() {
		fmt.Fprintln(os.Stderr, "no venue API credentials found in environment, keyring, or key files (use --paper to run without credentials)")
		os.Exit(1)
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		Testnet:   os.Getenv("BYBIT_TESTNET") == "true",
	})
	marketSource := exchange.NewLiveVenue(client, 10, 5)

	var venue exchange.TradingVenue
	if *paper {
		venue = exchange.NewPaperVenue(marketSource, paperStartingBalanceUSD)
		fmt.Println("running in paper mode: fills are simulated, no real orders are placed")
	} else {
		venue = marketSource
	}

	log, err := logger.New("trader")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	health := monitoring.NewHealthMonitor()
	go serveHealth(*healthAddr, health, log)

	runner := trader.NewRunner(venue, *dataRoot, log, health)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		runner.Stop()
		cancel()
	}()

	log.Info("trader starting under %s (paper=%v)", *dataRoot, *paper)
	runner.Run(ctx)
	log.Info("trader stopped")
}

func serveHealth(addr string, health *monitoring.HealthMonitor, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.LogError("health server", err)
	}
}
