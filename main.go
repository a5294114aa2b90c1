package main

import (
	"context"
	"log"
	"os"

	"github.com/Al10s/pupperteer-test/browser"
	"github.com/Al10s/pupperteer-test/config"
	"github.com/Al10s/pupperteer-test/diagnostics"
	"github.com/Al10s/pupperteer-test/eventlog"
	"github.com/Al10s/pupperteer-test/market"
	"github.com/Al10s/pupperteer-test/services"
	"github.com/Al10s/pupperteer-test/storage"
)

func main() {
	if err := run(); err != nil {
		log.Printf("✗ %v", err)
		os.Exit(1)
	}
}

// run keeps every teardown on a defer so the browser process is
// released exactly once on every exit path, fatal errors included.
func run() error {
	log.Printf("╔═══════════════════════════════════════════════════╗")
	log.Printf("║            TicketSwap Acquisition Bot             ║")
	log.Printf("╚═══════════════════════════════════════════════════╝")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Config integrity check, before any browser is launched.
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Printf("URL       : %s", cfg.HomeURL)
	log.Printf("Tickets   : %d (max %g€ each)", cfg.TicketCount, cfg.MaxPrice)
	log.Printf("Retry     : %s – %s", cfg.RetryDelayMin, cfg.RetryDelayMax)
	log.Printf("Artifacts : %s", cfg.LogDir)

	allocCtx, cancelAlloc := browser.NewAllocator(context.Background(), cfg)
	defer cancelAlloc()
	chrome := browser.NewChrome(allocCtx)

	rec := diagnostics.New(cfg.LogDir)

	events := eventlog.New(cfg.EventLogPath)
	defer events.Close()

	var sink services.ReceiptSink
	if cfg.DBHost != "" {
		store, err := storage.NewReceiptStore(cfg)
		if err != nil {
			log.Printf("⚠ receipt store unavailable: %v (continuing without persistence)", err)
		} else {
			defer store.Close()
			sink = store
		}
	}

	client := market.NewClient(chrome, rec, cfg)
	defer client.Close()

	buyer := services.NewBuyer(cfg, client, sink, events)
	runErr := buyer.Run(context.Background())

	summary := services.BuildRunSummary(buyer.Receipts())
	log.Printf("═══════════════════════════════════════════════════")
	log.Printf("  %d ticket(s) bought for %.2f€ total", summary.TotalTickets, summary.TotalSpend)
	if summary.TotalTickets > 0 {
		log.Printf("  unit price: min %.2f€ / avg %.2f€ / max %.2f€",
			summary.MinUnitPrice, summary.AvgUnitPrice, summary.MaxUnitPrice)
		for _, seller := range summary.PerSeller {
			log.Printf("    %-24s %d ticket(s)", seller.Author+":", seller.Tickets)
		}
	}
	log.Printf("═══════════════════════════════════════════════════")

	return runErr
}
