package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fwolasyar/car-perfector/config"
	"github.com/fwolasyar/car-perfector/importer"
	"github.com/fwolasyar/car-perfector/logger"
	"github.com/fwolasyar/car-perfector/store"
	"github.com/fwolasyar/car-perfector/vpic"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ config:", err)
		return 1
	}

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ logger:", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/*──────── 1. Destination ────────*/
	sink, err := store.Open(ctx, cfg.Database.URL, cfg.Database.Key)
	if err != nil {
		log.Error("❌ cannot open database", zap.Error(err))
		return 1
	}
	defer sink.Close()

	/*──────── 2. Upstream ────────*/
	client := vpic.NewClient(cfg.VPIC.BaseURL,
		vpic.WithHTTPClient(&http.Client{Timeout: cfg.VPIC.Timeout}),
		vpic.WithRateLimit(cfg.VPIC.RequestsPerSecond, cfg.VPIC.Burst),
	)

	/*──────── 3. Import ────────*/
	imp := importer.New(client, sink, log, importer.Options{
		AllowedMakes:    cfg.AllowedMakes,
		InterPhaseDelay: cfg.InterPhaseDelay,
	})
	summary, err := imp.Run(ctx)
	summary.Print(os.Stdout)
	if err != nil {
		log.Error("❌ import aborted", zap.Error(err))
		return 1
	}

	fmt.Println("🏁  Done: vPIC makes and models imported")
	return 0
}
