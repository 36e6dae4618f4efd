package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"zandagort/internal/auth"
	"zandagort/internal/config"
	"zandagort/internal/controllers"
	"zandagort/internal/core"
	"zandagort/internal/cron"
	"zandagort/internal/game"
	persistlog "zandagort/internal/persistence/log"
	"zandagort/internal/transport/httpapi"
	"zandagort/internal/transport/live"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		createUser = flag.String("create_user", "", "ensure an account exists, as name:password")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found (%s); using defaults", *configPath)
			cfg = config.Defaults()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.LogDir = filepath.Join(*dataDir, "logs")
	}

	channels := persistlog.OpenChannels(cfg.LogDir)
	defer channels.Close()

	store, err := auth.Open(filepath.Join(cfg.DataDir, "sessions.db"), cfg.SessionTTL())
	if err != nil {
		logger.Fatalf("open session store: %v", err)
	}
	defer store.Close()

	if *createUser != "" {
		name, password, ok := strings.Cut(*createUser, ":")
		if !ok {
			logger.Fatalf("-create_user wants name:password")
		}
		if err := store.EnsureUser(name, password); err != nil {
			logger.Fatalf("create user: %v", err)
		}
		logger.Printf("ensured account %q", name)
	}

	g := game.New(game.GameConfig{
		Seed:            cfg.WorldSeed,
		NumberOfPlanets: cfg.NumberOfPlanets,
	})

	queue := core.NewQueue()
	reg := core.NewRegistry()
	if err := controllers.Register(reg, g, store); err != nil {
		logger.Fatalf("register handlers: %v", err)
	}

	feed := live.NewFeed(logger)
	loop := core.NewLoop(queue, reg, store, g, channels,
		core.WithPollTimeout(cfg.QueuePollTimeout()),
		core.WithSimHook(feed.Publish),
	)

	sched := cron.New(queue, cfg.CronBaseDelay(), channels)
	if err := sched.Add("sim", cfg.SimInterval(), core.InnerSim); err != nil {
		logger.Fatalf("cron: %v", err)
	}
	if err := sched.Add("dump", cfg.DumpInterval(), core.InnerDump); err != nil {
		logger.Fatalf("cron: %v", err)
	}

	api := httpapi.New(loop, g, store, cfg, logger)
	api.Mux().HandleFunc("/live", feed.Handler())

	ctx, cancel := signalContext()
	defer cancel()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			logger.Fatalf("address %s already used by another service; change listen_addr in server.yaml", cfg.ListenAddr)
		}
		logger.Fatalf("listen: %v", err)
	}

	srv := &http.Server{
		Handler:           api.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("serve: %v", err)
		}
	}()
	go func() {
		if err := sched.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("cron stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.ListenAddr)

	// The core loop runs on the main goroutine for the process lifetime; it
	// is the only goroutine that touches game state.
	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		logger.Printf("core loop stopped: %v", err)
	}
	logger.Printf("shut down")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
