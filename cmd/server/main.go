package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainfund/config"
	"chainfund/internal/database"
	"chainfund/internal/repository"
	"chainfund/internal/router"
	"chainfund/internal/service"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	engine := router.Setup(cfg, db)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background sweep: lifecycle transitions and donation retry/expiry
	// housekeeping. Shares the HTTP process; all its operations are
	// idempotent guarded updates.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	notifSvc := service.NewNotificationService(repository.NewNotificationRepository(db), 0)
	lifecycle := service.NewLifecycleService(repository.NewCampaignRepository(db), notifSvc)
	sweeper := service.NewSweeper(
		repository.NewDonationRepository(db),
		repository.NewCampaignRepository(db),
		lifecycle,
		cfg.Engine.SweepInterval,
	)
	go sweeper.Run(sweepCtx)

	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
