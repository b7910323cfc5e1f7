package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"storefront.chapter42.de/mailer/internal/config"
	"storefront.chapter42.de/mailer/internal/logger"
)

const (
	shutdownTimeout = 5 * time.Second
	drainTimeout    = 30 * time.Second
)

func main() {
	configFile := flag.String("config", "", "Pfad zur Konfigurationsdatei (Standard: mailer.cfg.yaml)")
	flag.Parse()

	// Konfiguration laden, bis dahin nur nach stdout loggen
	bootLog, _ := zap.NewProduction()
	cfg, err := config.Load(bootLog, *configFile)
	if err != nil {
		bootLog.Fatal("Fehler beim Laden der Konfiguration:", zap.Error(err))
	}

	// Logger initialisieren
	logger.InitLogger(cfg.Debug)
	defer logger.Log.Sync()

	a, err := buildApp(context.Background(), cfg, logger.Log)
	if err != nil {
		logger.Log.Fatal("Fehler beim Initialisieren des Mailers:", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: a.router,
	}

	// Goroutine für das Abfangen von Shutdown-Signalen
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer close(done)
		<-quit
		logger.Log.Info("Server wird heruntergefahren...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Log.Error("Server-Shutdown fehlgeschlagen:", zap.Error(err))
		}

		// Offene E-Mails noch zustellen
		drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
		defer drainCancel()
		if err := a.shutdown(drainCtx); err != nil {
			logger.Log.Warn("Queue nicht vollständig abgearbeitet:", zap.Error(err), zap.Any("status", a.queue.Status()))
		}

		logger.Log.Info("Server heruntergefahren.")
	}()

	// Server starten (blockierend)
	logger.Log.Info("Server startet...", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Log.Fatal("Fehler beim Starten des Servers:", zap.Error(err))
	}
	<-done
}
