package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldline/fieldline/app"
	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/database"
	"github.com/fieldline/fieldline/httpx"
	"github.com/fieldline/fieldline/importer"
	"github.com/fieldline/fieldline/log"
	"github.com/fieldline/fieldline/routes"
	"github.com/fieldline/fieldline/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	st := store.New(db)

	if cfg.ImportPath != "" {
		if err := runImport(cfg.ImportPath, st); err != nil {
			log.Fatal("main.import:", err)
		}
		return
	}

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		Store:        st,
		BearerServer: bearerServer,
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runImport(path string, st *store.Store) error {
	form, err := importer.ParseFile(path)
	if err != nil {
		return err
	}
	if err := st.CreateForm(context.Background(), form); err != nil {
		return err
	}
	log.Infof("imported form %q as %s (version %d)", form.Title, form.ID, form.Version)
	return nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("Listening on " + cfg.Url())
		return srv.ListenAndServe()
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
