package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"curator/api/internal/app"
	"curator/api/internal/config"
	"curator/api/internal/library"
	"curator/api/internal/media"
	"curator/api/internal/notify"
	"curator/api/internal/search"
	"curator/api/internal/slug"
	"curator/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	objects, err := media.NewObjectStore(media.Config{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		UseTLS:        cfg.MinioUseTLS,
		StagingBucket: cfg.MinioStagingBucket,
		LibraryBucket: cfg.MinioLibraryBucket,
	})
	if err != nil {
		log.Fatalf("object store connection failed: %v", err)
	}

	pgSearch := search.NewPgSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgSearch)
	if meiliClient != nil {
		defer meiliClient.Close()
		go searchService.ReindexAllFromPG(ctx)
	}

	var feed notify.Feed
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the notification feed")
		redisFeed, err := notify.NewRedisFeed(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisFeed.Close()
		feed = redisFeed
	} else {
		log.Printf("Using in-memory notification feed")
		feed = notify.NewMemoryFeed()
	}

	repo := library.New(dataStore, objects, searchService)
	resolver := slug.NewResolver(dataStore)
	service := app.New(cfg, dataStore, repo, resolver, feed, searchService)

	// Orphaned staged blobs accumulate when uploads expire without a
	// decision; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			ids, err := dataStore.PendingIDs(sweepCtx)
			if err != nil {
				log.Printf("sweep: listing pending ids: %v", err)
				cancel()
				continue
			}
			objects.SweepExpired(sweepCtx, ids, time.Now().Add(-24*time.Hour))
			cancel()
		}
	}()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Curator API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
