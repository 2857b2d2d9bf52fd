package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rrsa.org/internal/httpapi"
	"rrsa.org/internal/invite"
	"rrsa.org/internal/obs"
	"rrsa.org/internal/session"
	"rrsa.org/internal/store"
)

var (
	version = "1.2.0"
	commit  = "dev"
)

func main() {
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx := context.Background()

	// Backend selection: Postgres when a DSN is set, a document file
	// otherwise. The file path defaults next to the binary.
	var (
		backend store.Backend
		probe   httpapi.ReadyProbe
		pg      *store.PostgresBackend
	)
	if dsn := os.Getenv("RRSA_PG_DSN"); dsn != "" {
		var err error
		pg, err = store.OpenPostgres(ctx, dsn)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		backend = pg
		probe = httpapi.ReadyProbe{DB: pg.DB()}
	} else {
		path := os.Getenv("RRSA_DOC_PATH")
		if path == "" {
			path = "rrsa.json"
		}
		backend = store.NewFileBackend(path)
	}

	st := store.New(backend)

	// The document must be current before anything else touches the store.
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	res, err := st.LoadOrInit(initCtx)
	cancel()
	if err != nil {
		log.Fatalf("init document: %v", err)
	}
	switch {
	case res.Seeded:
		log.Printf("Seeded fresh document at schema v%d", res.Version)
	case res.MigratedFrom != 0:
		log.Printf("Migrated document from schema v%d to v%d", res.MigratedFrom, res.Version)
	default:
		log.Printf("Document at schema v%d", res.Version)
	}

	api := httpapi.New(st, session.NewManager(st), invite.NewService(st), probe, version)

	addr := os.Getenv("RRSA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting rrsa-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if pg != nil {
		_ = pg.Close()
	}
	log.Println("Stopped")
}
