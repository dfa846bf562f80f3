package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caribbeat/caribbeat/internal/api"
	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/db"
	"github.com/caribbeat/caribbeat/internal/docfeed"
	"github.com/caribbeat/caribbeat/internal/jobs"
	"github.com/caribbeat/caribbeat/internal/repository"
	"github.com/caribbeat/caribbeat/internal/scheduler"
	"github.com/caribbeat/caribbeat/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("CaribBeat %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(&cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	feed := docfeed.NewStore(rdb)
	feed.Start(ctx)
	defer feed.Close()

	if err := primeFeed(database, feed); err != nil {
		log.Fatalf("priming document feed failed: %v", err)
	}

	jobQueue := jobs.NewQueue(cfg.Redis.Addr)

	// The compositor's change callback reaches back into the server's
	// websocket hub; srv is assigned before Start so the closure is safe.
	var srv *api.Server
	compositor := curation.New(feed, func(snap curation.Snapshot) {
		if srv != nil {
			srv.WSHub().Broadcast("home:update", snap)
		}
	})

	srv, err = api.NewServer(cfg, database, jobQueue, feed, compositor)
	if err != nil {
		log.Fatalf("server setup failed: %v", err)
	}
	compositor.Start()
	defer compositor.Close()

	jobs.RegisterHandlers(jobQueue, srv.ContentRepo(), srv.LayoutRepo(),
		srv.CampaignRepo(), srv.Notifier(), feed, srv.WSHub(), cfg)
	if err := jobQueue.Start(ctx); err != nil {
		log.Fatalf("job queue failed: %v", err)
	}

	sched := scheduler.New(jobQueue, srv.EventRepo(), cfg)
	if err := sched.Start(); err != nil {
		log.Fatalf("scheduler failed: %v", err)
	}

	go func() {
		log.Printf("listening on %s", cfg.Server.Address())
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	sched.Stop()
	jobQueue.Stop()
}

// primeFeed seeds the live document store from Postgres so compositors have
// documents to subscribe to before the first write lands: the layout, the
// automated slots, and every content item the two reference.
func primeFeed(database *db.DB, feed *docfeed.Store) error {
	layoutRepo := repository.NewLayoutRepository(database.DB)
	contentRepo := repository.NewContentRepository(database.DB)

	layout, err := layoutRepo.GetLayout()
	if err != nil {
		return err
	}
	if err := feed.Publish(curation.LayoutPath, layout); err != nil {
		return err
	}

	slots, err := layoutRepo.GetSlots()
	if err != nil {
		return err
	}
	if err := feed.Publish(curation.SlotsPath, slots); err != nil {
		return err
	}

	seen := make(map[string]bool)
	var ids []uuid.UUID
	collect := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		if u, err := uuid.Parse(id); err == nil {
			ids = append(ids, u)
		}
	}
	for _, entry := range append(layout.FeaturedItems, layout.TrendingItems...) {
		if entry.Kind == curation.EntryInternal && entry.Internal != nil {
			collect(entry.Internal.ContentID)
		}
	}
	for _, slot := range slots.All() {
		if slot.Content != nil {
			collect(slot.Content.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	items, err := contentRepo.GetByIDs(ids)
	if err != nil {
		return err
	}
	for i := range items {
		doc := curation.FromModel(&items[i])
		if err := feed.Publish(curation.ContentPath(doc.ID), doc); err != nil {
			return err
		}
	}
	log.Printf("primed feed with %d content documents", len(items))
	return nil
}
