// Command trainer runs train(coins, reprocess) against a live market data
// feed, persisting pattern memories under --data-root.
//
// Usage:
//
//	trainer [COIN] [reprocess_yes|reprocess_no]
//
// With no arguments it trains BTC without reprocessing (online-adjust mode).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ibrahim3d/powertrader/internal/exchange"
	"github.com/ibrahim3d/powertrader/internal/exchange/bybit"
	"github.com/ibrahim3d/powertrader/internal/logger"
	"github.com/ibrahim3d/powertrader/internal/monitoring"
	"github.com/ibrahim3d/powertrader/internal/trainer"
)

func main() {
	var (
		dataRoot = flag.String("data-root", "data", "Data root directory for per-coin memory files")
		envFile  = flag.String("env", ".env", "Environment file path")
		force    = flag.Bool("force-retrain", false, "Delete all persisted memory/status files for the coin, then rebuild from scratch")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("warning: could not load %s, checking environment variables: %v\n", *envFile, err)
	}

	coin := "BTC"
	reprocess := false
	args := flag.Args()
	if len(args) >= 1 && strings.TrimSpace(args[0]) != "" {
		coin = strings.ToUpper(strings.TrimSpace(args[0]))
	}
	if len(args) >= 2 {
		reprocess = strings.EqualFold(args[1], "reprocess_yes")
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   os.Getenv("BYBIT_TESTNET") == "true",
	})
	venue := exchange.NewLiveVenue(client, 10, 5)

	log, err := logger.New("trainer")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	health := monitoring.NewHealthMonitor()

	runner := trainer.NewRunner(venue, *dataRoot, log, health)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received, finishing current timeframe step")
		cancel()
	}()

	log.Info("training %s (reprocess=%v force=%v) under %s", coin, reprocess, *force, *dataRoot)
	var trainErr error
	if *force {
		trainErr = runner.ForceRetrain(ctx, coin)
	} else {
		trainErr = runner.Train(ctx, []string{coin}, reprocess)
	}
	if trainErr != nil {
		log.LogError("train", trainErr)
		os.Exit(1)
	}
	log.Info("training finished")
}
