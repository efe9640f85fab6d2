package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/airliecassidy/emaildownloader/internal/config"
	"github.com/airliecassidy/emaildownloader/internal/ledger"
	"github.com/airliecassidy/emaildownloader/internal/mailsource"
	"github.com/airliecassidy/emaildownloader/internal/notify"
	"github.com/airliecassidy/emaildownloader/internal/statusapi"
	"github.com/airliecassidy/emaildownloader/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single check cycle and exit")
	flag.Parse()

	cfg := config.Load(*configPath)

	if err := initLogging(cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	led, err := ledger.New(cfg.LedgerBackend, cfg.ProcessedEmailsFile, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to open %s ledger: %v", cfg.LedgerBackend, err)
	}
	defer led.Close()

	src := mailsource.NewIMAP(mailsource.IMAPOptions{
		Server:   cfg.IMAPServer,
		Port:     cfg.IMAPPort,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
	})

	w := worker.New(cfg, src, led, notify.New(cfg))

	if *once {
		if err := w.RunCycle(context.Background()); err != nil {
			log.Fatalf("Cycle failed: %v", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)

	if cfg.StatusAddr != "" {
		srv := &http.Server{Addr: cfg.StatusAddr, Handler: statusapi.New(w).Router()}
		go func() {
			log.Printf("Status API listening on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Status API stopped: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")
	cancel()
}

// initLogging tees the standard logger to stderr and the configured file.
// A logging sink we cannot construct is the one startup fault worth dying
// for; everything after this point expects log output to land somewhere.
func initLogging(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}
