package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"classlog/internal/app"
	"classlog/pkg/config"
	"classlog/pkg/logger"
	"classlog/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()

	// Resolve config path (file flag wins over env)
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, fileUsed, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init()
		shutdown.Abort("config load failed", err, "", 0)
	}

	// Flags win over env and file values when explicitly set.
	if setFlags["addr"] || cfg.Server.Address == "" && cfg.Server.Port == 0 {
		cfg.Server.Address = addrVal
	}
	if setFlags["db"] || cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = dbVal
	}

	logger.InitWithLevel(cfg.Logging.Level)

	var sources []string
	if fileUsed {
		sources = append(sources, "file:"+cfgPath)
	}
	if envUsed {
		sources = append(sources, "env")
	}
	sources = append(sources, "flags")

	ver := version
	if commit != "none" {
		ver = version + " (" + commit + ")"
	}

	a, err := app.New(cfg, strings.Join(sources, ","), ver)
	if err != nil {
		shutdown.Abort("startup failed", err, cfg.Storage.DBPath)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		logger.Info("signal_received", "signal", s.String())
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, cfg.Storage.DBPath, 0)
	}
	logger.Info("shutdown_complete")
}
