package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/text/language"

	"github.com/xtding233/coinmerge/internal/config"
	"github.com/xtding233/coinmerge/internal/score"
	"github.com/xtding233/coinmerge/internal/score/sqlite"
	"github.com/xtding233/coinmerge/internal/server"
)

func main() {
	env, err := config.LoadServerEnv()
	if err != nil {
		log.Fatalf("load env: %v", err)
	}
	flag.StringVar(&env.HTTPAddr, "http", env.HTTPAddr, "HTTP listen address, empty to disable")
	flag.StringVar(&env.GRPCAddr, "grpc", env.GRPCAddr, "gRPC listen address, empty to disable")
	flag.StringVar(&env.Profile, "profile", env.Profile, "profile checked at startup")
	flag.Parse()
	log.SetPrefix("[COINMERGE] ")

	loader := config.NewLoader(env.ConfigDir)
	if _, _, err := loader.Resolve(env.Profile); err != nil {
		log.Fatalf("resolve profile %s: %v", env.Profile, err)
	}
	if env.WatchInterval > 0 {
		watcher := config.WatchProfiles(loader, env.WatchInterval)
		watcher.Start()
		defer watcher.Stop()
	}

	if dir := filepath.Dir(env.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create storage dir: %v", err)
		}
	}
	store, err := sqlite.Open(env.DBPath)
	if err != nil {
		log.Fatalf("open score store: %v", err)
	}
	defer store.Close()

	locale, err := language.Parse(env.Locale)
	if err != nil {
		log.Printf("locale %q: %v, using ko", env.Locale, err)
		locale = language.Korean
	}

	hub := server.NewHub(server.HubOptions{
		Profiles: loader,
		Stores:   func(profile string) score.Store { return store.ForProfile(profile) },
		Locale:   locale,
	})
	srv, err := server.NewWithAddr(hub, env.HTTPAddr, env.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Serve(ctx); err != nil {
		log.Printf("serve: %v", err)
	}
}
