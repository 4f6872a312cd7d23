package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"vpnd/internal/config"
	"vpnd/internal/database"
	"vpnd/internal/diaglog"
	"vpnd/internal/profiles"
	"vpnd/internal/server"
	"vpnd/internal/util"
	"vpnd/internal/version"
)

func main() {
	cfg, showVersion, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("configuration: %v", err)
	}
	if showVersion {
		fmt.Println(version.Current().String())
		return
	}

	diag := diaglog.New(cfg.Diagnostics.Path)
	if err := diag.Configure(cfg.Diagnostics.Enabled, cfg.Diagnostics.Level); err != nil {
		log.Printf("warning: diagnostics log unavailable: %v", err)
	}
	defer diag.Close()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", cfg.Database.Path, err)
	}
	defer db.Close()

	store, err := profiles.NewStore(db)
	if err != nil {
		log.Fatalf("failed to open profile store: %v", err)
	}

	srv, err := server.New(server.Options{
		Profiles:       store,
		Diagnostics:    diag,
		CurrentVersion: cfg.Version.Current,
		Releases:       cfg.Releases(),
		RequestLog:     true,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	listenAddr, err := util.ResolveListenAddress(cfg.Listen.Address, cfg.Listen.Interface, nil)
	if err != nil {
		log.Printf("warning: %v; listening on %s", err, listenAddr)
	}

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("%s management api listening on %s", version.Current(), listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// loadConfig parses flags, loads the config file they name and applies
// flag overrides on top.
func loadConfig(args []string) (*config.Config, bool, error) {
	flagSet := pflag.NewFlagSet("vpnd", pflag.ContinueOnError)
	configPath := flagSet.String("config", os.Getenv("VPND_CONFIG"), "path to the YAML config file (env VPND_CONFIG)")
	addr := flagSet.String("addr", "", "listen address, overrides listen.address")
	dbPath := flagSet.String("db", "", "SQLite database path, overrides database.path")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(args); err != nil {
		return nil, false, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, false, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if *showVersion {
		return nil, true, nil
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}
	if flagSet.Changed("addr") {
		cfg.Listen.Address = *addr
	}
	if flagSet.Changed("db") {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}
